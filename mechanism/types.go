package mechanism

import (
	"errors"
	"fmt"
	"time"

	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type ProposalState uint8

const (
	StatePending ProposalState = iota
	StateActive
	StateTallying
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateRedeemable
	StateExpired
)

func (s ProposalState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateActive:
		return "Active"
	case StateTallying:
		return "Tallying"
	case StateCanceled:
		return "Canceled"
	case StateDefeated:
		return "Defeated"
	case StateSucceeded:
		return "Succeeded"
	case StateQueued:
		return "Queued"
	case StateRedeemable:
		return "Redeemable"
	case StateExpired:
		return "Expired"
	}
	return "Unknown"
}

// VoteSupport mirrors the usual governor vote types. Only VoteFor is accepted.
type VoteSupport uint8

const (
	VoteAgainst VoteSupport = 0
	VoteFor     VoteSupport = 1
	VoteAbstain VoteSupport = 2
)

type Participant struct {
	Address     common.Address `json:"address"`
	Registered  bool           `json:"registered"`
	Deposited   *uint256.Int   `json:"deposited"`
	VotingPower *uint256.Int   `json:"votingPower"`
}

type Proposal struct {
	ID          uint64         `json:"id"`
	Proposer    common.Address `json:"proposer"`
	Recipient   common.Address `json:"recipient"`
	Description string         `json:"description"`
	Canceled    bool           `json:"canceled"`
	CreatedAt   time.Time      `json:"createdAt"`
	Queued      bool           `json:"queued"`
	// SharesMinted is zero until queued, and stays zero when the strategy
	// paid the recipient directly (see Distributed).
	SharesMinted *uint256.Int `json:"sharesMinted"`
	Distributed  *uint256.Int `json:"distributed"`
}

type VoteRecord struct {
	HasVoted bool         `json:"hasVoted"`
	Weight   *uint256.Int `json:"weight"`
}

// Globals is the mechanism-wide mutable state besides the tallies.
type Globals struct {
	Finalized       bool         `json:"finalized"`
	FinalizedAt     time.Time    `json:"finalizedAt"`
	RedemptionStart time.Time    `json:"redemptionStart"`
	Alpha           qf.Alpha     `json:"alpha"`
	ProposalCount   uint64       `json:"proposalCount"`
	TotalDeposits   *uint256.Int `json:"totalDeposits"`
	MatchingFunds   *uint256.Int `json:"matchingFunds"`
	TotalSupply     *uint256.Int `json:"totalSupply"`
}

// Config is fixed when the mechanism is created.
type Config struct {
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	AssetDecimals uint8          `json:"assetDecimals"`
	Owner         common.Address `json:"owner"`
	// Pool is the account that holds deposits and the matching pool.
	Pool                  common.Address `json:"pool"`
	StartTime             time.Time      `json:"startTime"`
	VotingDelay           time.Duration  `json:"votingDelay"`
	VotingPeriod          time.Duration  `json:"votingPeriod"`
	TimelockDelay         time.Duration  `json:"timelockDelay"`
	GracePeriod           time.Duration  `json:"gracePeriod"`
	Quorum                *uint256.Int   `json:"quorum"`
	Alpha                 qf.Alpha       `json:"alpha"`
	FreezeAlphaOnFinalize bool           `json:"freezeAlphaOnFinalize"`
}

func (c Config) VotingStart() time.Time {
	return c.StartTime.Add(c.VotingDelay)
}

func (c Config) VotingEnd() time.Time {
	return c.VotingStart().Add(c.VotingPeriod)
}

func (c Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return errors.New("owner not set")
	}
	if c.Pool == (common.Address{}) {
		return errors.New("pool account not set")
	}
	if c.VotingDelay < 0 || c.VotingPeriod <= 0 {
		return errors.New("invalid voting window")
	}
	// a zero timelock would leave no time to queue
	if c.TimelockDelay <= 0 || c.GracePeriod < 0 {
		return errors.New("invalid timelock or grace period")
	}
	if c.AssetDecimals > qfmath.MaxDecimals {
		return fmt.Errorf("asset decimals above %d", qfmath.MaxDecimals)
	}
	if c.Quorum != nil && !qfmath.Fits(c.Quorum) {
		return errors.New("quorum too large")
	}
	return c.Alpha.Validate()
}
