package types

import (
	"strconv"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventSignupType         = "signup"
	EventFundPoolType       = "fund_pool"
	EventProposeType        = "propose"
	EventVoteType           = "vote"
	EventCancelType         = "cancel"
	EventFinalizeType       = "finalize"
	EventQueueType          = "queue"
	EventRedeemType         = "redeem"
	EventTransferSharesType = "transfer_shares"
	EventApproveType        = "approve"
	EventSetAlphaType       = "set_alpha"
	EventGrantProposerType  = "grant_proposer"
	EventSweepType          = "sweep"
	EventSendType           = "send"
)

func attr(key, value string, index bool) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: value, Index: index}
}

func attrMap(event abci.Event) map[string]string {
	m := make(map[string]string, len(event.Attributes))
	for _, v := range event.Attributes {
		m[v.Key] = v.Value
	}
	return m
}

// hasAttrs reports whether every key is present.
func hasAttrs(m map[string]string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

func amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(s string) (*uint256.Int, bool) {
	v, err := uint256.FromDecimal(s)
	return v, err == nil
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

type EventSignup struct {
	Account     common.Address `json:"account"`
	Amount      *uint256.Int   `json:"amount"`
	VotingPower *uint256.Int   `json:"votingPower"`
}

func EncodeEventSignup(event *EventSignup) abci.Event {
	return abci.Event{
		Type: EventSignupType,
		Attributes: []abci.EventAttribute{
			attr("account", event.Account.Hex(), true),
			attr("amount", amount(event.Amount), false),
			attr("votingPower", amount(event.VotingPower), false),
		},
	}
}

type EventFundPool struct {
	Funder common.Address `json:"funder"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventFundPool(event *EventFundPool) abci.Event {
	return abci.Event{
		Type: EventFundPoolType,
		Attributes: []abci.EventAttribute{
			attr("funder", event.Funder.Hex(), true),
			attr("amount", amount(event.Amount), false),
		},
	}
}

type EventPropose struct {
	Proposal    uint64         `json:"proposal"`
	Proposer    common.Address `json:"proposer"`
	Recipient   common.Address `json:"recipient"`
	Description string         `json:"description"`
}

func EncodeEventPropose(event *EventPropose) abci.Event {
	return abci.Event{
		Type: EventProposeType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.Proposal, 10), true),
			attr("proposer", event.Proposer.Hex(), true),
			attr("recipient", event.Recipient.Hex(), true),
			attr("description", event.Description, false),
		},
	}
}

func DecodeEventPropose(originEvent abci.Event) *EventPropose {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "proposal", "proposer", "recipient", "description") {
		return nil
	}
	event := &EventPropose{}
	var ok bool
	for k, v := range attrs {
		switch k {
		case "proposal":
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "proposer":
			if event.Proposer, ok = parseAddress(v); !ok {
				return nil
			}
		case "recipient":
			if event.Recipient, ok = parseAddress(v); !ok {
				return nil
			}
		case "description":
			event.Description = v
		}
	}
	return event
}

type EventVote struct {
	Proposal  uint64         `json:"proposal"`
	Voter     common.Address `json:"voter"`
	Weight    *uint256.Int   `json:"weight"`
	Remaining *uint256.Int   `json:"remaining"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.Proposal, 10), true),
			attr("voter", event.Voter.Hex(), true),
			attr("weight", amount(event.Weight), false),
			attr("remaining", amount(event.Remaining), false),
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "proposal", "voter", "weight", "remaining") {
		return nil
	}
	event := &EventVote{}
	var ok bool
	for k, v := range attrs {
		switch k {
		case "proposal":
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "voter":
			if event.Voter, ok = parseAddress(v); !ok {
				return nil
			}
		case "weight":
			if event.Weight, ok = parseAmount(v); !ok {
				return nil
			}
		case "remaining":
			if event.Remaining, ok = parseAmount(v); !ok {
				return nil
			}
		}
	}
	return event
}

type EventCancel struct {
	Proposal uint64         `json:"proposal"`
	Proposer common.Address `json:"proposer"`
}

func EncodeEventCancel(event *EventCancel) abci.Event {
	return abci.Event{
		Type: EventCancelType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.Proposal, 10), true),
			attr("proposer", event.Proposer.Hex(), false),
		},
	}
}

func DecodeEventCancel(originEvent abci.Event) *EventCancel {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "proposal", "proposer") {
		return nil
	}
	event := &EventCancel{}
	var ok bool
	for k, v := range attrs {
		switch k {
		case "proposal":
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "proposer":
			if event.Proposer, ok = parseAddress(v); !ok {
				return nil
			}
		}
	}
	return event
}

type EventFinalize struct {
	FinalizedAt     time.Time `json:"finalizedAt"`
	RedemptionStart time.Time `json:"redemptionStart"`
}

func EncodeEventFinalize(event *EventFinalize) abci.Event {
	return abci.Event{
		Type: EventFinalizeType,
		Attributes: []abci.EventAttribute{
			attr("finalizedAt", strconv.FormatInt(event.FinalizedAt.Unix(), 10), false),
			attr("redemptionStart", strconv.FormatInt(event.RedemptionStart.Unix(), 10), false),
		},
	}
}

func DecodeEventFinalize(originEvent abci.Event) *EventFinalize {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "finalizedAt", "redemptionStart") {
		return nil
	}
	event := &EventFinalize{}
	for k, v := range attrs {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		switch k {
		case "finalizedAt":
			event.FinalizedAt = time.Unix(sec, 0).UTC()
		case "redemptionStart":
			event.RedemptionStart = time.Unix(sec, 0).UTC()
		}
	}
	return event
}

type EventQueue struct {
	Proposal    uint64         `json:"proposal"`
	Recipient   common.Address `json:"recipient"`
	Shares      *uint256.Int   `json:"shares"`
	Distributed *uint256.Int   `json:"distributed"`
}

func EncodeEventQueue(event *EventQueue) abci.Event {
	return abci.Event{
		Type: EventQueueType,
		Attributes: []abci.EventAttribute{
			attr("proposal", strconv.FormatUint(event.Proposal, 10), true),
			attr("recipient", event.Recipient.Hex(), true),
			attr("shares", amount(event.Shares), false),
			attr("distributed", amount(event.Distributed), false),
		},
	}
}

func DecodeEventQueue(originEvent abci.Event) *EventQueue {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "proposal", "recipient", "shares", "distributed") {
		return nil
	}
	event := &EventQueue{}
	var ok bool
	for k, v := range attrs {
		switch k {
		case "proposal":
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "recipient":
			if event.Recipient, ok = parseAddress(v); !ok {
				return nil
			}
		case "shares":
			if event.Shares, ok = parseAmount(v); !ok {
				return nil
			}
		case "distributed":
			if event.Distributed, ok = parseAmount(v); !ok {
				return nil
			}
		}
	}
	return event
}

type EventRedeem struct {
	Caller   common.Address `json:"caller"`
	Owner    common.Address `json:"owner"`
	Receiver common.Address `json:"receiver"`
	Shares   *uint256.Int   `json:"shares"`
	Assets   *uint256.Int   `json:"assets"`
}

func EncodeEventRedeem(event *EventRedeem) abci.Event {
	return abci.Event{
		Type: EventRedeemType,
		Attributes: []abci.EventAttribute{
			attr("caller", event.Caller.Hex(), false),
			attr("owner", event.Owner.Hex(), true),
			attr("receiver", event.Receiver.Hex(), true),
			attr("shares", amount(event.Shares), false),
			attr("assets", amount(event.Assets), false),
		},
	}
}

func DecodeEventRedeem(originEvent abci.Event) *EventRedeem {
	attrs := attrMap(originEvent)
	if !hasAttrs(attrs, "caller", "owner", "receiver", "shares", "assets") {
		return nil
	}
	event := &EventRedeem{}
	var ok bool
	for k, v := range attrs {
		switch k {
		case "caller":
			event.Caller, ok = parseAddress(v)
		case "owner":
			event.Owner, ok = parseAddress(v)
		case "receiver":
			event.Receiver, ok = parseAddress(v)
		case "shares":
			event.Shares, ok = parseAmount(v)
		case "assets":
			event.Assets, ok = parseAmount(v)
		default:
			ok = true
		}
		if !ok {
			return nil
		}
	}
	return event
}

type EventTransferShares struct {
	Caller common.Address `json:"caller"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventTransferShares(event *EventTransferShares) abci.Event {
	return abci.Event{
		Type: EventTransferSharesType,
		Attributes: []abci.EventAttribute{
			attr("caller", event.Caller.Hex(), false),
			attr("from", event.From.Hex(), true),
			attr("to", event.To.Hex(), true),
			attr("amount", amount(event.Amount), false),
		},
	}
}

type EventApprove struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  *uint256.Int   `json:"amount"`
}

func EncodeEventApprove(event *EventApprove) abci.Event {
	return abci.Event{
		Type: EventApproveType,
		Attributes: []abci.EventAttribute{
			attr("owner", event.Owner.Hex(), true),
			attr("spender", event.Spender.Hex(), true),
			attr("amount", amount(event.Amount), false),
		},
	}
}

type EventSetAlpha struct {
	Numerator   *uint256.Int `json:"numerator"`
	Denominator *uint256.Int `json:"denominator"`
}

func EncodeEventSetAlpha(event *EventSetAlpha) abci.Event {
	return abci.Event{
		Type: EventSetAlphaType,
		Attributes: []abci.EventAttribute{
			attr("numerator", amount(event.Numerator), false),
			attr("denominator", amount(event.Denominator), false),
		},
	}
}

type EventGrantProposer struct {
	Account common.Address `json:"account"`
	Revoke  bool           `json:"revoke"`
}

func EncodeEventGrantProposer(event *EventGrantProposer) abci.Event {
	return abci.Event{
		Type: EventGrantProposerType,
		Attributes: []abci.EventAttribute{
			attr("account", event.Account.Hex(), true),
			attr("revoke", strconv.FormatBool(event.Revoke), false),
		},
	}
}

type EventSweep struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventSweep(event *EventSweep) abci.Event {
	return abci.Event{
		Type: EventSweepType,
		Attributes: []abci.EventAttribute{
			attr("to", event.To.Hex(), true),
			attr("amount", amount(event.Amount), false),
		},
	}
}

type EventSend struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventSend(event *EventSend) abci.Event {
	return abci.Event{
		Type: EventSendType,
		Attributes: []abci.EventAttribute{
			attr("from", event.From.Hex(), true),
			attr("to", event.To.Hex(), true),
			attr("amount", amount(event.Amount), false),
		},
	}
}
