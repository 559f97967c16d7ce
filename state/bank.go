package state

import (
	"github.com/calehh/qf-app/mechanism"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Bank is the chain's base asset as seen by the mechanism: balances live in
// the accounts and the pool is an ordinary account nobody can sign for.
type Bank struct {
	st       *State
	pool     common.Address
	decimals uint8
}

var _ mechanism.Asset = (*Bank)(nil)

func (b *Bank) PullFrom(payer common.Address, amount *uint256.Int) error {
	return b.st.transfer(payer, b.pool, amount)
}

func (b *Bank) PushTo(recipient common.Address, amount *uint256.Int) error {
	return b.st.transfer(b.pool, recipient, amount)
}

func (b *Bank) BalanceOf(account common.Address) (*uint256.Int, error) {
	return b.st.Balance(account)
}

func (b *Bank) Decimals() uint8 {
	return b.decimals
}

// ProposerRegistry authorizes the accounts granted the proposer role.
type ProposerRegistry struct {
	st *State
}

var _ mechanism.Authorizer = ProposerRegistry{}

func (r ProposerRegistry) CanPropose(account common.Address) bool {
	ok, err := r.st.IsProposer(account)
	if err != nil {
		r.st.logger.Error("read proposer registry fail", "err", err)
		return false
	}
	return ok
}
