package mechanism

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Asset moves the pooled asset in and out of the mechanism's pool account.
type Asset interface {
	// PullFrom moves amount from payer into the pool.
	PullFrom(payer common.Address, amount *uint256.Int) error
	// PushTo moves amount from the pool to recipient.
	PushTo(recipient common.Address, amount *uint256.Int) error
	BalanceOf(account common.Address) (*uint256.Int, error)
	Decimals() uint8
}

// Authorizer decides who may create proposals.
type Authorizer interface {
	CanPropose(account common.Address) bool
}

// AllowList authorizes a fixed set of proposers.
type AllowList map[common.Address]bool

func (l AllowList) CanPropose(account common.Address) bool {
	return l[account]
}

// Open lets anyone propose.
type Open struct{}

func (Open) CanPropose(common.Address) bool { return true }
