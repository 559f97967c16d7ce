package state

import (
	"fmt"

	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Account is the chain-level record of an address: its tx nonce and its
// base asset balance. Accounts come into existence on first credit.
type Account struct {
	Address common.Address `json:"address" rlp:"-"`
	Nonce   uint64         `json:"nonce"`
	Balance *uint256.Int   `json:"balance"`
}

func (a *Account) Clone() *Account {
	return &Account{
		Address: a.Address,
		Nonce:   a.Nonce,
		Balance: new(uint256.Int).Set(a.Balance),
	}
}

// GetAccount returns the account of addr, or an empty one.
func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	acnt = &Account{Address: addr, Balance: new(uint256.Int)}
	val, err := s.Get([]byte(fmt.Sprintf(KeyAccount, addr)))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return
	}
	if err = rlp.DecodeBytes(val, acnt); err != nil {
		return nil, err
	}
	acnt.Address = addr
	acnt.Balance = qfmath.OrZero(acnt.Balance)
	return
}

func (s *State) setAccount(acnt *Account) error {
	val, err := rlp.EncodeToBytes(acnt)
	if err != nil {
		return err
	}
	return s.Set([]byte(fmt.Sprintf(KeyAccount, acnt.Address)), val)
}

func (s *State) Balance(addr common.Address) (*uint256.Int, error) {
	a, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return a.Balance, nil
}

func (s *State) transfer(from, to common.Address, amount *uint256.Int) error {
	amount = qfmath.OrZero(amount)
	fa, err := s.GetAccount(from)
	if err != nil {
		return err
	}
	if fa.Balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), fa.Balance.Dec(), amount.Dec())
	}
	if from == to || amount.IsZero() {
		return nil
	}
	fa.Balance = new(uint256.Int).Sub(fa.Balance, amount)
	if err = s.setAccount(fa); err != nil {
		return err
	}
	ta, err := s.GetAccount(to)
	if err != nil {
		return err
	}
	if ta.Balance, err = qfmath.Add(ta.Balance, amount); err != nil {
		return err
	}
	return s.setAccount(ta)
}
