package mechanism

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CastVote spends weight^2 of the caller's voting power in support of a
// proposal. expectedRecipient must match the proposal's recipient, which
// guards the voter against voting on a different proposal than intended.
// It returns the caller's remaining voting power.
func (m *Mechanism) CastVote(caller common.Address, id uint64, support VoteSupport, weight *uint256.Int, expectedRecipient common.Address) (*uint256.Int, error) {
	var remaining *uint256.Int
	err := m.mutate("vote", func() error {
		p, err := m.store.proposal(id)
		if err != nil {
			return err
		}
		if p.Canceled {
			return ErrProposalCanceled
		}
		st, err := m.state(p)
		if err != nil {
			return err
		}
		if st != StateActive {
			return ErrNotVotingWindow
		}
		if support != VoteFor {
			return ErrUnsupportedSupport
		}
		if weight == nil || weight.IsZero() {
			return ErrZeroAmount
		}
		if p.Recipient != expectedRecipient {
			return ErrRecipientMismatch
		}
		rec, err := m.store.vote(id, caller)
		if err != nil {
			return err
		}
		if rec.HasVoted {
			return ErrAlreadyVoted
		}
		voter, err := m.store.participant(caller)
		if err != nil {
			return err
		}
		if !voter.Registered {
			return ErrNotRegistered
		}
		remaining, err = m.strategy.OnVote(view{m}, id, caller, weight, voter.VotingPower)
		if err != nil {
			return err
		}
		voter.VotingPower = remaining
		if err = m.store.setParticipant(voter); err != nil {
			return err
		}
		return m.store.setVote(id, caller, &VoteRecord{HasVoted: true, Weight: new(uint256.Int).Set(weight)})
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("vote", "proposal", id, "voter", caller.Hex(), "weight", weight.Dec(), "remaining", remaining.Dec())
	return remaining, nil
}
