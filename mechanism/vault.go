package mechanism

import (
	"fmt"

	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TotalAssets is the pool's current asset balance.
func (m *Mechanism) TotalAssets() (*uint256.Int, error) {
	return m.asset.BalanceOf(m.cfg.Pool)
}

func (m *Mechanism) TotalSupply() (*uint256.Int, error) {
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return nil, err
	}
	return g.TotalSupply, nil
}

func (m *Mechanism) BalanceOf(holder common.Address) (*uint256.Int, error) {
	return m.store.shares(holder)
}

func (m *Mechanism) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	return m.store.allowance(owner, spender)
}

// ConvertToAssets returns floor(shares * totalAssets / totalSupply). With no
// shares outstanding it converts 1:1.
func (m *Mechanism) ConvertToAssets(shares *uint256.Int) (*uint256.Int, error) {
	supply, err := m.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply.IsZero() {
		return new(uint256.Int).Set(shares), nil
	}
	assets, err := m.TotalAssets()
	if err != nil {
		return nil, err
	}
	return qfmath.MulDiv(shares, assets, supply)
}

// redeemOpen reports whether now lies in [r, r+g].
func (m *Mechanism) redeemOpen() (bool, error) {
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return false, err
	}
	if !g.Finalized {
		return false, nil
	}
	t := m.now()
	return !t.Before(g.RedemptionStart) && !t.After(g.RedemptionStart.Add(m.cfg.GracePeriod)), nil
}

// PreviewRedeem is the asset amount shares redeem for now, or 0 outside the
// redemption window.
func (m *Mechanism) PreviewRedeem(shares *uint256.Int) (*uint256.Int, error) {
	open, err := m.redeemOpen()
	if err != nil || !open {
		return qfmath.Zero(), err
	}
	return m.ConvertToAssets(shares)
}

// MaxRedeem is owner's share balance, or 0 outside the redemption window.
func (m *Mechanism) MaxRedeem(owner common.Address) (*uint256.Int, error) {
	open, err := m.redeemOpen()
	if err != nil || !open {
		return qfmath.Zero(), err
	}
	return m.store.shares(owner)
}

// Redeem burns shares of owner and sends the assets they convert to to
// receiver. The burn is recorded before the asset leaves the pool; a failed
// transfer discards it.
func (m *Mechanism) Redeem(caller common.Address, shares *uint256.Int, receiver, owner common.Address) (*uint256.Int, error) {
	var assets *uint256.Int
	err := m.mutate("redeem", func() error {
		open, err := m.redeemOpen()
		if err != nil {
			return err
		}
		if !open {
			return ErrRedeemWindowClosed
		}
		if shares == nil || shares.IsZero() {
			return ErrZeroAmount
		}
		if receiver == (common.Address{}) {
			return ErrZeroAddress
		}
		if caller != owner {
			if err = m.spendAllowance(owner, caller, shares); err != nil {
				return err
			}
		}
		if assets, err = m.ConvertToAssets(shares); err != nil {
			return err
		}
		if assets.IsZero() {
			return ErrZeroAssets
		}
		if err = m.burn(owner, shares); err != nil {
			return err
		}
		return m.asset.PushTo(receiver, assets)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("redeem", "owner", owner.Hex(), "receiver", receiver.Hex(), "shares", shares.Dec(), "assets", assets.Dec())
	return assets, nil
}

// Transfer moves caller's shares to to. Shares only move inside the
// redemption window.
func (m *Mechanism) Transfer(caller, to common.Address, amount *uint256.Int) error {
	return m.mutate("transfer", func() error {
		return m.transfer(caller, to, amount)
	})
}

// TransferFrom moves from's shares to to, spending caller's allowance.
func (m *Mechanism) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	return m.mutate("transferFrom", func() error {
		if caller != from {
			if err := m.spendAllowance(from, caller, amount); err != nil {
				return err
			}
		}
		return m.transfer(from, to, amount)
	})
}

// Approve sets the number of owner's shares spender may move or redeem.
func (m *Mechanism) Approve(owner, spender common.Address, amount *uint256.Int) error {
	return m.mutate("approve", func() error {
		if spender == (common.Address{}) {
			return ErrZeroAddress
		}
		amount = qfmath.OrZero(amount)
		if !qfmath.Fits(amount) {
			return ErrOverflow
		}
		return m.store.setAllowance(owner, spender, amount)
	})
}

func (m *Mechanism) transfer(from, to common.Address, amount *uint256.Int) error {
	open, err := m.redeemOpen()
	if err != nil {
		return err
	}
	if !open {
		return ErrTransferLocked
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	fromBal, err := m.store.shares(from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: have %s shares, need %s", ErrInsufficientBalance, fromBal.Dec(), amount.Dec())
	}
	if err = m.store.setShares(from, new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := m.store.shares(to)
	if err != nil {
		return err
	}
	if toBal, err = qfmath.Add(toBal, amount); err != nil {
		return err
	}
	return m.store.setShares(to, toBal)
}

func (m *Mechanism) spendAllowance(owner, spender common.Address, amount *uint256.Int) error {
	allowed, err := m.store.allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: allowed %s, need %s", ErrInsufficientAllowance, allowed.Dec(), amount.Dec())
	}
	return m.store.setAllowance(owner, spender, new(uint256.Int).Sub(allowed, amount))
}

func (m *Mechanism) mint(to common.Address, shares *uint256.Int) error {
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return err
	}
	supply, err := qfmath.Add(g.TotalSupply, shares)
	if err != nil {
		return err
	}
	bal, err := m.store.shares(to)
	if err != nil {
		return err
	}
	if bal, err = qfmath.Add(bal, shares); err != nil {
		return err
	}
	g.TotalSupply = supply
	if err = m.store.setShares(to, bal); err != nil {
		return err
	}
	return m.store.setGlobals(g)
}

func (m *Mechanism) burn(from common.Address, shares *uint256.Int) error {
	bal, err := m.store.shares(from)
	if err != nil {
		return err
	}
	if bal.Lt(shares) {
		return fmt.Errorf("%w: have %s shares, need %s", ErrInsufficientBalance, bal.Dec(), shares.Dec())
	}
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return err
	}
	g.TotalSupply = new(uint256.Int).Sub(g.TotalSupply, shares)
	if err = m.store.setShares(from, new(uint256.Int).Sub(bal, shares)); err != nil {
		return err
	}
	return m.store.setGlobals(g)
}
