package types

import (
	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/qf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AccountView is returned by the /accounts/ query.
type AccountView struct {
	Address     common.Address         `json:"address"`
	Nonce       uint64                 `json:"nonce"`
	Balance     *uint256.Int           `json:"balance"`
	Shares      *uint256.Int           `json:"shares"`
	MaxRedeem   *uint256.Int           `json:"maxRedeem"`
	Proposer    bool                   `json:"proposer"`
	Participant *mechanism.Participant `json:"participant"`
}

// ProposalView is returned by the /proposals/ query.
type ProposalView struct {
	*mechanism.Proposal
	State string   `json:"state"`
	Tally qf.Tally `json:"tally"`
}

// MechanismView is returned by the /mechanism/ query.
type MechanismView struct {
	Config       mechanism.Config   `json:"config"`
	Globals      *mechanism.Globals `json:"globals"`
	Totals       qf.Totals          `json:"totals"`
	TotalFunding *uint256.Int       `json:"totalFunding"`
	TotalAssets  *uint256.Int       `json:"totalAssets"`
	Strategy     string             `json:"strategy"`
}

// AlphaView is returned by the /alpha/ query.
type AlphaView struct {
	Current      qf.Alpha     `json:"current"`
	Optimal      qf.Alpha     `json:"optimal"`
	MatchingPool *uint256.Int `json:"matchingPool"`
}
