package handler

import (
	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// NewTxHandlers returns the handler of every supported tx type.
func NewTxHandlers(logger cmtlog.Logger) map[tx.QFTxType]TxHandler {
	return map[tx.QFTxType]TxHandler{
		tx.QFTxTypeSignup:         newTxHandler(logger, "signup", (*state.State).Signup, types.EncodeEventSignup),
		tx.QFTxTypePropose:        newTxHandler(logger, "propose", (*state.State).Propose, types.EncodeEventPropose),
		tx.QFTxTypeVote:           newTxHandler(logger, "vote", (*state.State).Vote, types.EncodeEventVote),
		tx.QFTxTypeCancel:         newTxHandler(logger, "cancel", (*state.State).Cancel, types.EncodeEventCancel),
		tx.QFTxTypeFinalize:       newTxHandler(logger, "finalize", (*state.State).Finalize, types.EncodeEventFinalize),
		tx.QFTxTypeQueue:          newTxHandler(logger, "queue", (*state.State).Queue, types.EncodeEventQueue),
		tx.QFTxTypeRedeem:         newTxHandler(logger, "redeem", (*state.State).Redeem, types.EncodeEventRedeem),
		tx.QFTxTypeTransferShares: newTxHandler(logger, "transferShares", (*state.State).TransferShares, types.EncodeEventTransferShares),
		tx.QFTxTypeApprove:        newTxHandler(logger, "approve", (*state.State).Approve, types.EncodeEventApprove),
		tx.QFTxTypeSetAlpha:       newTxHandler(logger, "setAlpha", (*state.State).SetAlpha, types.EncodeEventSetAlpha),
		tx.QFTxTypeFundPool:       newTxHandler(logger, "fundPool", (*state.State).FundPool, types.EncodeEventFundPool),
		tx.QFTxTypeGrantProposer:  newTxHandler(logger, "grantProposer", (*state.State).GrantProposer, types.EncodeEventGrantProposer),
		tx.QFTxTypeSweep:          newTxHandler(logger, "sweep", (*state.State).Sweep, types.EncodeEventSweep),
		tx.QFTxTypeSend:           newTxHandler(logger, "send", (*state.State).Send, types.EncodeEventSend),
	}
}
