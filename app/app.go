package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/calehh/qf-app/config"
	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/tx/handler"
	"github.com/calehh/qf-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

var ErrAppStateMissing = errors.New("genesis app_state missing")

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &QFApp{}

type QFApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.QFTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
	// now is the local clock used by CheckTx
	now func() time.Time
}

func NewQFApp(cfg *config.AppConfig, logger cmtlog.Logger) (app *QFApp, err error) {
	db, err := state.NewStateDB(filepath.Join(cfg.Home, "data"), logger)
	if err != nil {
		return nil, err
	}
	return NewQFAppWithDB(cfg, db, logger), nil
}

func NewQFAppWithDB(cfg *config.AppConfig, db *state.StateDB, logger cmtlog.Logger) (app *QFApp) {
	logger = logger.With("module", "app")
	app = &QFApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		queriers: make(map[string]Querier),
		now:      time.Now,
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *QFApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *QFApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("QF app stopped")
}

func (app *QFApp) registerTxHandler() {
	app.txHdlrs = handler.NewTxHandlers(app.logger)
}

func (app *QFApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/proposals/"] = NewProposalQuerier(app.db, app.logger)
	app.queriers["/mechanism/"] = NewMechanismQuerier(app.db, app.logger)
	app.queriers["/alpha/"] = NewAlphaQuerier(app.db, app.logger)
	app.queriers["/proposers/"] = NewProposerQuerier(app.db, app.logger)
}

func (app *QFApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	if len(chain.AppStateBytes) == 0 {
		return nil, ErrAppStateMissing
	}
	var gs types.GenesisAppState
	if err = json.Unmarshal(chain.AppStateBytes, &gs); err != nil {
		app.logger.Error("InitChain decode app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetBlockTime(chain.Time)
	if err = st.InitGenesis(&gs); err != nil {
		app.logger.Error("InitChain apply genesis fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = app.db.Update(st)
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "allocations", len(gs.Allocations), "round", gs.Params.Mechanism.Name)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *QFApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Data:             types.QFModuleName,
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *QFApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *QFApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *QFApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}

func (app *QFApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *QFApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *QFApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_REJECT}, nil
}
