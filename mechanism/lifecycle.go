package mechanism

import (
	"fmt"
	"time"

	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State derives the lifecycle state of a proposal at the current time.
func (m *Mechanism) State(id uint64) (ProposalState, error) {
	p, err := m.store.proposal(id)
	if err != nil {
		return 0, err
	}
	return m.state(p)
}

func (m *Mechanism) state(p *Proposal) (ProposalState, error) {
	if p.Canceled {
		return StateCanceled, nil
	}
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return 0, err
	}
	t := m.now()
	switch {
	case t.Before(m.cfg.VotingStart()):
		return StatePending, nil
	case !g.Finalized && !t.After(m.cfg.VotingEnd()):
		return StateActive, nil
	case !g.Finalized:
		return StateTallying, nil
	}
	if !p.Queued {
		ok, err := m.strategy.HasQuorum(view{m}, p.ID)
		if err != nil {
			return 0, err
		}
		if ok {
			return StateSucceeded, nil
		}
		return StateDefeated, nil
	}
	switch {
	case t.Before(g.RedemptionStart):
		return StateQueued, nil
	case !t.After(g.RedemptionStart.Add(m.cfg.GracePeriod)):
		return StateRedeemable, nil
	}
	return StateExpired, nil
}

// Propose registers a proposal paying recipient. A recipient can be the
// target of one proposal only, even after that proposal is canceled.
func (m *Mechanism) Propose(caller, recipient common.Address, description string) (uint64, error) {
	var id uint64
	err := m.mutate("propose", func() error {
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		if !m.votingOpen(g) {
			return ErrVotingClosed
		}
		if err = m.strategy.OnPropose(view{m}, caller, recipient); err != nil {
			return err
		}
		p := &Proposal{
			ID:           g.ProposalCount + 1,
			Proposer:     caller,
			Recipient:    recipient,
			Description:  description,
			CreatedAt:    m.now(),
			SharesMinted: qfmath.Zero(),
			Distributed:  qfmath.Zero(),
		}
		if err = m.strategy.ValidateProposal(view{m}, p); err != nil {
			return err
		}
		used, err := m.store.proposalForRecipient(recipient)
		if err != nil {
			return err
		}
		if used != 0 {
			return ErrRecipientUsed
		}
		g.ProposalCount = p.ID
		if err = m.store.setProposal(p); err != nil {
			return err
		}
		if err = m.store.setProposalForRecipient(recipient, p.ID); err != nil {
			return err
		}
		id = p.ID
		return m.store.setGlobals(g)
	})
	if err != nil {
		return 0, err
	}
	m.logger.Info("proposal created", "id", id, "proposer", caller.Hex(), "recipient", recipient.Hex())
	return id, nil
}

// CancelProposal cancels a Pending or Active proposal. Only the proposer may
// cancel. The proposal's sums leave the global totals; voting power already
// spent on it is not refunded.
func (m *Mechanism) CancelProposal(caller common.Address, id uint64) error {
	err := m.mutate("cancel", func() error {
		p, err := m.store.proposal(id)
		if err != nil {
			return err
		}
		if p.Proposer != caller {
			return ErrNotProposer
		}
		st, err := m.state(p)
		if err != nil {
			return err
		}
		if st != StatePending && st != StateActive {
			return fmt.Errorf("%w: proposal is %s", ErrNotCancelable, st)
		}
		tally, err := m.store.tally(id)
		if err != nil {
			return err
		}
		totals, err := m.store.totals()
		if err != nil {
			return err
		}
		if totals, err = qf.RemoveProject(tally, totals); err != nil {
			return err
		}
		p.Canceled = true
		if err = m.store.setProposal(p); err != nil {
			return err
		}
		return m.store.setTotals(totals)
	})
	if err != nil {
		return err
	}
	m.logger.Info("proposal canceled", "id", id)
	return nil
}

// FinalizeVoteTally closes the round once voting has ended and starts the
// redemption clock at now + timelock delay. It succeeds once.
func (m *Mechanism) FinalizeVoteTally(caller common.Address) (time.Time, error) {
	var start time.Time
	err := m.mutate("finalize", func() error {
		if caller != m.cfg.Owner {
			return ErrNotOwner
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		if g.Finalized {
			return ErrAlreadyFinalized
		}
		t := m.now()
		if !t.After(m.cfg.VotingEnd()) {
			return ErrVotingNotEnded
		}
		g.Finalized = true
		g.FinalizedAt = t
		g.RedemptionStart = t.Add(m.cfg.TimelockDelay)
		start = g.RedemptionStart
		return m.store.setGlobals(g)
	})
	if err != nil {
		return time.Time{}, err
	}
	m.logger.Info("vote tally finalized", "redemptionStart", start)
	return start, nil
}

// QueueResult describes how a queued proposal was paid.
type QueueResult struct {
	Recipient common.Address
	// Shares minted to Recipient. Zero when the strategy paid directly.
	Shares *uint256.Int
	// Distributed is the amount of asset paid directly to Recipient.
	Distributed *uint256.Int
}

// QueueProposal mints a Succeeded proposal's shares to its recipient, or lets
// the strategy pay the recipient directly. Anyone may queue, but only before
// the redemption start.
func (m *Mechanism) QueueProposal(id uint64) (*QueueResult, error) {
	res := &QueueResult{Shares: qfmath.Zero(), Distributed: qfmath.Zero()}
	err := m.mutate("queue", func() error {
		p, err := m.store.proposal(id)
		if err != nil {
			return err
		}
		if p.Queued {
			return ErrAlreadyQueued
		}
		st, err := m.state(p)
		if err != nil {
			return err
		}
		if st != StateSucceeded {
			return fmt.Errorf("%w: proposal is %s", ErrNoQuorum, st)
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		// the share supply is fixed before the first redemption
		if !m.now().Before(g.RedemptionStart) {
			return ErrQueueClosed
		}
		shares, err := m.strategy.SharesFor(view{m}, id)
		if err != nil {
			return err
		}
		recipient, err := m.strategy.RecipientFor(view{m}, id)
		if err != nil {
			return err
		}
		res.Recipient = recipient
		handled, moved, err := m.strategy.CustomDistribution(view{m}, recipient, shares)
		if err != nil {
			return err
		}
		if handled {
			res.Distributed = qfmath.OrZero(moved)
			p.Distributed = res.Distributed
		} else {
			if err = m.mint(recipient, shares); err != nil {
				return err
			}
			res.Shares = shares
			p.SharesMinted = shares
		}
		p.Queued = true
		return m.store.setProposal(p)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("proposal queued", "id", id, "recipient", res.Recipient.Hex(), "shares", res.Shares.Dec(), "distributed", res.Distributed.Dec())
	return res, nil
}

// SetAlpha changes the funding blend. Funding is recomputed from raw sums on
// every read, so the change applies to all proposals at once. After finalize
// it is rejected only when the config freezes alpha.
func (m *Mechanism) SetAlpha(caller common.Address, alpha qf.Alpha) error {
	err := m.mutate("setAlpha", func() error {
		if caller != m.cfg.Owner {
			return ErrNotOwner
		}
		if err := alpha.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		if g.Finalized && m.cfg.FreezeAlphaOnFinalize {
			return ErrAlphaFrozen
		}
		g.Alpha = alpha
		return m.store.setGlobals(g)
	})
	if err != nil {
		return err
	}
	m.logger.Info("alpha set", "alpha", alpha.String())
	return nil
}

// Sweep moves whatever the pool still holds to the given account once the
// redemption window has closed. Only the owner may sweep.
func (m *Mechanism) Sweep(caller, to common.Address) (*uint256.Int, error) {
	var amount *uint256.Int
	err := m.mutate("sweep", func() error {
		if caller != m.cfg.Owner {
			return ErrNotOwner
		}
		if to == (common.Address{}) {
			return ErrZeroAddress
		}
		g, err := m.store.globals(m.cfg)
		if err != nil {
			return err
		}
		if !g.Finalized || !m.now().After(g.RedemptionStart.Add(m.cfg.GracePeriod)) {
			return ErrSweepTooEarly
		}
		if amount, err = m.TotalAssets(); err != nil {
			return err
		}
		if amount.IsZero() {
			return nil
		}
		return m.asset.PushTo(to, amount)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("pool swept", "to", to.Hex(), "amount", amount.Dec())
	return amount, nil
}
