package handler

import (
	"context"
	"fmt"

	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	CodeOK uint32 = iota
	CodeTxFailed
	CodeInvalidTx
)

type TxHandler interface {
	// Check runs the tx against a copy of st and reports whether it would
	// succeed.
	Check(ctx context.Context, st *state.State, btx *tx.QFTx) (res *abcitypes.ResponseCheckTx, err error)
	// Process applies the tx to st. On error st may be partly written and
	// must be discarded.
	Process(ctx context.Context, st *state.State, btx *tx.QFTx) (res *abcitypes.ExecTxResult, err error)
}

// txHandler adapts a State method taking payload T and producing event E.
type txHandler[T any, E any] struct {
	logger cmtlog.Logger
	apply  func(st *state.State, sender common.Address, t *T) (*E, error)
	encode func(event *E) abcitypes.Event
}

func newTxHandler[T any, E any](logger cmtlog.Logger, name string, apply func(*state.State, common.Address, *T) (*E, error), encode func(*E) abcitypes.Event) *txHandler[T, E] {
	return &txHandler[T, E]{
		logger: logger.With("module", name+"Tx"),
		apply:  apply,
		encode: encode,
	}
}

func (h *txHandler[T, E]) payload(btx *tx.QFTx) (*T, error) {
	t, ok := btx.Tx.(*T)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: unexpected payload for %s", tx.ErrInvalidTx, btx.Type)
	}
	return t, nil
}

func (h *txHandler[T, E]) Check(ctx context.Context, st *state.State, btx *tx.QFTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	t, err := h.payload(btx)
	if err != nil {
		return nil, err
	}
	_, err1 := h.apply(st.Clone(), btx.Sender, t)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "sender", btx.Sender.Hex(), "err", err1)
		res.Code = CodeTxFailed
		res.Log = err1.Error()
	}
	return
}

func (h *txHandler[T, E]) Process(ctx context.Context, st *state.State, btx *tx.QFTx) (res *abcitypes.ExecTxResult, err error) {
	t, err := h.payload(btx)
	if err != nil {
		return nil, err
	}
	event, err := h.apply(st, btx.Sender, t)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Code: CodeOK}
	if event != nil {
		res.Events = []abcitypes.Event{h.encode(event)}
	}
	return
}
