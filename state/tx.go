package state

import (
	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func orSender(addr, sender common.Address) common.Address {
	if addr == (common.Address{}) {
		return sender
	}
	return addr
}

func (s *State) Signup(sender common.Address, t *tx.SignupTx) (event *types.EventSignup, err error) {
	s.logger.Debug("apply signup", "sender", sender.Hex(), "height", s.header.Height)
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	power, err := m.Signup(sender, t.Amount)
	if err != nil {
		return nil, err
	}
	event = &types.EventSignup{Account: sender, Amount: t.Amount, VotingPower: power}
	return
}

func (s *State) FundPool(sender common.Address, t *tx.FundPoolTx) (event *types.EventFundPool, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	if err = m.FundMatchingPool(sender, t.Amount); err != nil {
		return nil, err
	}
	event = &types.EventFundPool{Funder: sender, Amount: t.Amount}
	return
}

func (s *State) Propose(sender common.Address, t *tx.ProposeTx) (event *types.EventPropose, err error) {
	s.logger.Debug("apply propose", "sender", sender.Hex(), "height", s.header.Height)
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	id, err := m.Propose(sender, t.Recipient, t.Description)
	if err != nil {
		return nil, err
	}
	event = &types.EventPropose{
		Proposal:    id,
		Proposer:    sender,
		Recipient:   t.Recipient,
		Description: t.Description,
	}
	return
}

func (s *State) Vote(sender common.Address, t *tx.VoteTx) (event *types.EventVote, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	remaining, err := m.CastVote(sender, t.Proposal, mechanism.VoteSupport(t.Support), t.Weight, t.Recipient)
	if err != nil {
		return nil, err
	}
	event = &types.EventVote{Proposal: t.Proposal, Voter: sender, Weight: t.Weight, Remaining: remaining}
	return
}

func (s *State) Cancel(sender common.Address, t *tx.CancelTx) (event *types.EventCancel, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	if err = m.CancelProposal(sender, t.Proposal); err != nil {
		return nil, err
	}
	event = &types.EventCancel{Proposal: t.Proposal, Proposer: sender}
	return
}

func (s *State) Finalize(sender common.Address, _ *tx.FinalizeTx) (event *types.EventFinalize, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	r, err := m.FinalizeVoteTally(sender)
	if err != nil {
		return nil, err
	}
	event = &types.EventFinalize{FinalizedAt: s.BlockTime(), RedemptionStart: r}
	return
}

func (s *State) Queue(_ common.Address, t *tx.QueueTx) (event *types.EventQueue, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	res, err := m.QueueProposal(t.Proposal)
	if err != nil {
		return nil, err
	}
	event = &types.EventQueue{
		Proposal:    t.Proposal,
		Recipient:   res.Recipient,
		Shares:      res.Shares,
		Distributed: res.Distributed,
	}
	return
}

func (s *State) Redeem(sender common.Address, t *tx.RedeemTx) (event *types.EventRedeem, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	owner := orSender(t.Owner, sender)
	receiver := orSender(t.Receiver, sender)
	assets, err := m.Redeem(sender, t.Shares, receiver, owner)
	if err != nil {
		return nil, err
	}
	event = &types.EventRedeem{
		Caller:   sender,
		Owner:    owner,
		Receiver: receiver,
		Shares:   t.Shares,
		Assets:   assets,
	}
	return
}

func (s *State) TransferShares(sender common.Address, t *tx.TransferSharesTx) (event *types.EventTransferShares, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	from := orSender(t.From, sender)
	if from == sender {
		err = m.Transfer(sender, t.To, t.Amount)
	} else {
		err = m.TransferFrom(sender, from, t.To, t.Amount)
	}
	if err != nil {
		return nil, err
	}
	event = &types.EventTransferShares{Caller: sender, From: from, To: t.To, Amount: t.Amount}
	return
}

func (s *State) Approve(sender common.Address, t *tx.ApproveTx) (event *types.EventApprove, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	if err = m.Approve(sender, t.Spender, t.Amount); err != nil {
		return nil, err
	}
	event = &types.EventApprove{Owner: sender, Spender: t.Spender, Amount: t.Amount}
	return
}

func (s *State) SetAlpha(sender common.Address, t *tx.SetAlphaTx) (event *types.EventSetAlpha, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	if err = m.SetAlpha(sender, t.Alpha); err != nil {
		return nil, err
	}
	event = &types.EventSetAlpha{Numerator: t.Alpha.Numerator, Denominator: t.Alpha.Denominator}
	return
}

func (s *State) Sweep(sender common.Address, t *tx.SweepTx) (event *types.EventSweep, err error) {
	m, err := s.Mechanism()
	if err != nil {
		return nil, err
	}
	amount, err := m.Sweep(sender, t.To)
	if err != nil {
		return nil, err
	}
	event = &types.EventSweep{To: t.To, Amount: amount}
	return
}

// GrantProposer adds or removes an account from the proposer registry. Only
// the round owner may change it.
func (s *State) GrantProposer(sender common.Address, t *tx.GrantProposerTx) (event *types.EventGrantProposer, err error) {
	p, err := s.Params()
	if err != nil {
		return nil, err
	}
	if sender != p.Mechanism.Owner {
		return nil, mechanism.ErrNotOwner
	}
	if t.Account == (common.Address{}) {
		return nil, mechanism.ErrZeroAddress
	}
	if err = s.setProposer(t.Account, !t.Revoke); err != nil {
		return nil, err
	}
	event = &types.EventGrantProposer{Account: t.Account, Revoke: t.Revoke}
	return
}

func (s *State) Send(sender common.Address, t *tx.SendTx) (event *types.EventSend, err error) {
	if t.To == (common.Address{}) {
		return nil, mechanism.ErrZeroAddress
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return nil, mechanism.ErrZeroAmount
	}
	if err = s.transfer(sender, t.To, t.Amount); err != nil {
		return nil, err
	}
	event = &types.EventSend{From: sender, To: t.To, Amount: new(uint256.Int).Set(t.Amount)}
	return
}
