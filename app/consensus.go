package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnsupportedTx       = errors.New("unsupported tx")
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

// parseTx decodes a tx, checks its signature and nonce against st and finds
// its handler.
func (app *QFApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.QFTx, h handler.TxHandler, err error) {
	btx, err = tx.UnmarshalQFTx(txDat)
	if err != nil {
		return
	}
	if _, err = st.Verify(btx, allowNonceGap); err != nil {
		return
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnsupportedTx, btx.Type)
	}
	return
}

// CheckTx runs a tx against the committed state at the later of the last
// block time and the local clock, the best guess at the next block's time.
func (app *QFApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err = app.db.View(func(st *state.State) error {
		if now := app.now(); now.After(st.BlockTime()) {
			st.SetBlockTime(now)
		}
		btx, h, err := app.parseTx(st, check.Tx, true)
		if err != nil {
			app.logger.Error("parse tx fail", "err", err)
			res = &abcitypes.ResponseCheckTx{Code: handler.CodeInvalidTx, Log: err.Error()}
			return nil
		}
		app.logger.Debug("check tx", "type", btx.Type, "sender", btx.Sender.Hex(), "nonce", btx.Nonce)
		res, err = h.Check(ctx, st, btx)
		if err != nil {
			app.logger.Error("check tx fail", "err", err)
			res = &abcitypes.ResponseCheckTx{Code: handler.CodeInvalidTx, Log: err.Error()}
		}
		return nil
	})
	return
}

// apply runs one tx against a copy of st. A tx that fails still consumes its
// nonce so it cannot be replayed.
func (app *QFApp) apply(ctx context.Context, st *state.State, btx *tx.QFTx, h handler.TxHandler) (next *state.State, res *abcitypes.ExecTxResult, err error) {
	stTmp := st.Clone()
	res, err1 := h.Process(ctx, stTmp, btx)
	if err1 != nil {
		next = st
		res = &abcitypes.ExecTxResult{Code: handler.CodeTxFailed, Log: err1.Error()}
	} else {
		next = stTmp
	}
	if err = next.IncNonce(btx.Sender); err != nil {
		return nil, nil, err
	}
	return
}

func (app *QFApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.db.NewState()
	st.SetBlockTime(proposal.Time)
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("unsupported tx, parse fail", "err", err)
			continue
		}
		// dropped txs must not consume a nonce, so run on a copy
		next, result, err := app.apply(ctx, st.Clone(), btx, h)
		if err != nil {
			app.logger.Error("prepare tx fail", "type", btx.Type, "err", err)
			continue
		}
		if result.Code != handler.CodeOK {
			app.logger.Info("prepare tx dropped", "type", btx.Type, "log", result.Log)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal accepts a block whose txs all decode and carry a valid
// signature. Execution failures are deterministic and reported per tx in
// FinalizeBlock.
func (app *QFApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	chainId := app.db.Header().ChainId
	for _, stx := range proposal.Txs {
		btx, err := tx.UnmarshalQFTx(stx)
		if err != nil {
			app.logger.Error("ProcessProposal decode fail", "height", proposal.Height, "err", err)
			return res, nil
		}
		if _, err = btx.Signer(chainId); err != nil {
			app.logger.Error("ProcessProposal bad signature", "height", proposal.Height, "err", err)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Info("proposal accepted", "height", proposal.Height)
	return res, nil
}

func (app *QFApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (next *state.State, res []*abcitypes.ExecTxResult, err error) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Info("skip invalid tx", "err", err)
			res[i] = &abcitypes.ExecTxResult{Code: handler.CodeInvalidTx, Log: err.Error()}
			continue
		}
		st, res[i], err = app.apply(ctx, st, btx, h)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return nil, nil, fmt.Errorf("%w: %v", ErrUnexpectedTxProcess, err)
		}
	}
	return st, res, nil
}

func (app *QFApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.db.NewState()
	st.SetBlockTime(req.Time)
	st, res, err := app.finalize(ctx, st, req.Txs)
	if err != nil {
		return nil, err
	}
	app.st = st
	h, err := app.db.Update(st)
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *QFApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
