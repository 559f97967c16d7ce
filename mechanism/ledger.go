package mechanism

import (
	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// votingOpen reports whether signups and proposals are still accepted.
func (m *Mechanism) votingOpen(g *Globals) bool {
	return !g.Finalized && !m.now().After(m.cfg.VotingEnd())
}

// Signup pulls amount from caller into the pool and credits voting power.
// Each account signs up once.
func (m *Mechanism) Signup(caller common.Address, amount *uint256.Int) (*uint256.Int, error) {
	var power *uint256.Int
	err := m.mutate("signup", func() error {
		if caller == (common.Address{}) {
			return ErrZeroAddress
		}
		if amount == nil || amount.IsZero() {
			return ErrZeroAmount
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		if !m.votingOpen(g) {
			return ErrVotingClosed
		}
		p, err := m.store.participant(caller)
		if err != nil {
			return err
		}
		if p.Registered {
			return ErrAlreadyRegistered
		}
		if err = m.strategy.OnSignup(view{m}, caller, amount); err != nil {
			return err
		}
		power, err = m.strategy.VotingPowerFor(view{m}, caller, amount)
		if err != nil {
			return err
		}
		if !qfmath.Fits(power) {
			return ErrOverflow
		}
		deposits, err := qfmath.Add(g.TotalDeposits, amount)
		if err != nil {
			return err
		}
		if err = m.asset.PullFrom(caller, amount); err != nil {
			return err
		}
		g.TotalDeposits = deposits
		p.Registered = true
		p.Deposited = new(uint256.Int).Set(amount)
		p.VotingPower = power
		if err = m.store.setParticipant(p); err != nil {
			return err
		}
		return m.store.setGlobals(g)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("signup", "user", caller.Hex(), "deposit", amount.Dec(), "power", power.Dec())
	return power, nil
}

// FundMatchingPool pulls amount from caller into the pool as matching funds.
// Matching funds buy no voting power.
func (m *Mechanism) FundMatchingPool(caller common.Address, amount *uint256.Int) error {
	err := m.mutate("fund", func() error {
		if amount == nil || amount.IsZero() {
			return ErrZeroAmount
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		funds, err := qfmath.Add(g.MatchingFunds, amount)
		if err != nil {
			return err
		}
		if err = m.asset.PullFrom(caller, amount); err != nil {
			return err
		}
		g.MatchingFunds = funds
		return m.store.setGlobals(g)
	})
	if err != nil {
		return err
	}
	m.logger.Info("matching pool funded", "from", caller.Hex(), "amount", amount.Dec())
	return nil
}
