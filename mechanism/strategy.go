package mechanism

import (
	"fmt"

	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger is the view of the mechanism handed to strategy hooks.
type Ledger interface {
	Config() Config
	Proposal(id uint64) (*Proposal, error)
	ProjectTally(id uint64) (qf.ProjectTally, error)
	Totals() (qf.Totals, error)
	Alpha() (qf.Alpha, error)
	Tally(id uint64) (qf.Tally, error)
	CanPropose(account common.Address) bool
	RecordTally(id uint64, tally qf.ProjectTally, totals qf.Totals) error
	TotalAssets() (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
	PushAssets(to common.Address, amount *uint256.Int) error
}

// Strategy is the allocation policy plugged into the lifecycle and the vault.
type Strategy interface {
	OnSignup(l Ledger, user common.Address, deposit *uint256.Int) error
	OnPropose(l Ledger, proposer, recipient common.Address) error
	ValidateProposal(l Ledger, p *Proposal) error
	VotingPowerFor(l Ledger, user common.Address, deposit *uint256.Int) (*uint256.Int, error)
	// OnVote applies a vote and returns the voter's remaining power.
	OnVote(l Ledger, id uint64, voter common.Address, weight, power *uint256.Int) (*uint256.Int, error)
	HasQuorum(l Ledger, id uint64) (bool, error)
	SharesFor(l Ledger, id uint64) (*uint256.Int, error)
	RecipientFor(l Ledger, id uint64) (common.Address, error)
	// CustomDistribution may pay the recipient directly instead of minting
	// shares. When handled is true no shares are minted.
	CustomDistribution(l Ledger, recipient common.Address, shares *uint256.Int) (handled bool, assetsMoved *uint256.Int, err error)
}

// QuadraticVoting charges weight^2 voting power per vote and funds proposals
// with the alpha-weighted blend of quadratic and linear sums.
type QuadraticVoting struct{}

var _ Strategy = QuadraticVoting{}

func (QuadraticVoting) OnSignup(Ledger, common.Address, *uint256.Int) error {
	return nil
}

func (QuadraticVoting) OnPropose(l Ledger, proposer, _ common.Address) error {
	if !l.CanPropose(proposer) {
		return fmt.Errorf("%w: %s may not propose", ErrUnauthorized, proposer.Hex())
	}
	return nil
}

func (QuadraticVoting) ValidateProposal(_ Ledger, p *Proposal) error {
	if p.Recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	if p.Description == "" {
		return ErrEmptyDescription
	}
	return nil
}

// VotingPowerFor credits power 1:1 with the deposit, in 18-decimal units.
func (QuadraticVoting) VotingPowerFor(l Ledger, _ common.Address, deposit *uint256.Int) (*uint256.Int, error) {
	return qfmath.Normalize(deposit, l.Config().AssetDecimals)
}

func (QuadraticVoting) OnVote(l Ledger, id uint64, _ common.Address, weight, power *uint256.Int) (*uint256.Int, error) {
	cost, err := qfmath.Square(weight)
	if err != nil {
		return nil, err
	}
	if power.Lt(cost) {
		return nil, fmt.Errorf("%w: have %s, vote costs %s", ErrInsufficientPower, power.Dec(), cost.Dec())
	}
	tally, err := l.ProjectTally(id)
	if err != nil {
		return nil, err
	}
	totals, err := l.Totals()
	if err != nil {
		return nil, err
	}
	tally, totals, err = qf.ApplyVote(tally, totals, weight)
	if err != nil {
		return nil, err
	}
	if err = l.RecordTally(id, tally, totals); err != nil {
		return nil, err
	}
	return new(uint256.Int).Sub(power, cost), nil
}

func (s QuadraticVoting) HasQuorum(l Ledger, id uint64) (bool, error) {
	shares, err := s.SharesFor(l, id)
	if err != nil {
		return false, err
	}
	return !shares.Lt(qfmath.OrZero(l.Config().Quorum)), nil
}

// SharesFor converts the proposal's alpha-weighted funding back to asset units.
func (QuadraticVoting) SharesFor(l Ledger, id uint64) (*uint256.Int, error) {
	tally, err := l.Tally(id)
	if err != nil {
		return nil, err
	}
	funding, err := tally.Funding()
	if err != nil {
		return nil, err
	}
	return qfmath.Denormalize(funding, l.Config().AssetDecimals)
}

func (QuadraticVoting) RecipientFor(l Ledger, id uint64) (common.Address, error) {
	p, err := l.Proposal(id)
	if err != nil {
		return common.Address{}, err
	}
	return p.Recipient, nil
}

func (QuadraticVoting) CustomDistribution(Ledger, common.Address, *uint256.Int) (bool, *uint256.Int, error) {
	return false, qfmath.Zero(), nil
}

// ThresholdPayout pays allocations smaller than Threshold shares directly at
// queue time, one asset unit per share, capped by what the pool holds.
type ThresholdPayout struct {
	QuadraticVoting
	Threshold *uint256.Int
}

var _ Strategy = ThresholdPayout{}

func (s ThresholdPayout) CustomDistribution(l Ledger, recipient common.Address, shares *uint256.Int) (bool, *uint256.Int, error) {
	if shares.IsZero() || s.Threshold == nil || !shares.Lt(s.Threshold) {
		return false, qfmath.Zero(), nil
	}
	assets, err := l.TotalAssets()
	if err != nil {
		return false, nil, err
	}
	amount := new(uint256.Int).Set(qfmath.Min(shares, assets))
	if amount.IsZero() {
		return true, amount, nil
	}
	if err = l.PushAssets(recipient, amount); err != nil {
		return false, nil, err
	}
	return true, amount, nil
}
