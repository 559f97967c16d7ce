package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/qf-app/config"
	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/tx/handler"
	"github.com/calehh/qf-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const chainId = "qf-test"

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type account struct {
	priv  *ecdsa.PrivateKey
	addr  common.Address
	nonce uint64
}

func newAccount(t *testing.T) *account {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &account{priv: priv, addr: crypto.PubkeyToAddress(priv.PublicKey)}
}

// sign builds the next tx of a and consumes its nonce.
func (a *account) sign(t *testing.T, tp tx.QFTxType, payload any) []byte {
	btx := tx.NewQFTx(tp, a.nonce, a.addr, payload)
	require.NoError(t, btx.Sign(a.priv, chainId))
	a.nonce++
	dat, err := tx.MarshalQFTx(btx)
	require.NoError(t, err)
	return dat
}

type testChain struct {
	t      *testing.T
	app    *QFApp
	height int64
	owner  *account
	alice  *account
	bob    *account
}

func newTestChain(t *testing.T) *testChain {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	c := &testChain{
		t:     t,
		app:   NewQFAppWithDB(config.DefaultAppConfig(t.TempDir()), db, cmtlog.NewNopLogger()),
		owner: newAccount(t),
		alice: newAccount(t),
		bob:   newAccount(t),
	}
	c.app.now = func() time.Time { return t0 }
	gs := types.DefaultGenesisAppState(c.owner.addr, t0)
	gs.Allocations = []types.Allocation{
		{Address: c.owner.addr, Amount: uint256.NewInt(5000)},
		{Address: c.alice.addr, Amount: uint256.NewInt(1000)},
		{Address: c.bob.addr, Amount: uint256.NewInt(1000)},
	}
	appState, err := json.Marshal(gs)
	require.NoError(t, err)
	res, err := c.app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		Time:          t0,
		ChainId:       chainId,
		AppStateBytes: appState,
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, 32)
	return c
}

// block finalizes and commits txs at the given time.
func (c *testChain) block(at time.Time, txs ...[]byte) []*abcitypes.ExecTxResult {
	c.height++
	ctx := context.Background()
	pres, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: c.height, Time: at, Txs: txs})
	require.NoError(c.t, err)
	require.Equal(c.t, abcitypes.ResponseProcessProposal_ACCEPT, pres.Status)
	fres, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: c.height, Time: at, Txs: txs})
	require.NoError(c.t, err)
	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	info, err := c.app.Info(ctx, &abcitypes.RequestInfo{})
	require.NoError(c.t, err)
	require.Equal(c.t, c.height, info.LastBlockHeight)
	require.Equal(c.t, fres.AppHash, info.LastBlockAppHash)
	return fres.TxResults
}

func (c *testChain) query(path string, data []byte, out any) *abcitypes.ResponseQuery {
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	if out != nil && res.Code == 0 {
		require.NoError(c.t, json.Unmarshal(res.Value, out))
	}
	return res
}

func TestInitChainRequiresAppState(t *testing.T) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	app := NewQFAppWithDB(config.DefaultAppConfig(t.TempDir()), db, cmtlog.NewNopLogger())
	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: chainId, Time: t0})
	require.ErrorIs(t, err, ErrAppStateMissing)
}

func TestRound(t *testing.T) {
	c := newTestChain(t)
	recipient := common.HexToAddress("0x21")
	cfg := types.DefaultGenesisAppState(c.owner.addr, t0).Params.Mechanism

	res := c.block(t0.Add(time.Hour),
		c.owner.sign(t, tx.QFTxTypePropose, &tx.ProposeTx{Recipient: recipient, Description: "library"}),
		c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(1000)}),
		c.bob.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(1000)}),
		c.owner.sign(t, tx.QFTxTypeFundPool, &tx.FundPoolTx{Amount: uint256.NewInt(2000)}),
	)
	for _, r := range res {
		require.Equal(t, handler.CodeOK, r.Code, r.Log)
	}

	res = c.block(cfg.VotingStart(),
		c.alice.sign(t, tx.QFTxTypeVote, &tx.VoteTx{Proposal: 1, Support: 1, Weight: uint256.NewInt(30), Recipient: recipient}),
		c.bob.sign(t, tx.QFTxTypeVote, &tx.VoteTx{Proposal: 1, Support: 1, Weight: uint256.NewInt(20), Recipient: recipient}),
	)
	for _, r := range res {
		require.Equal(t, handler.CodeOK, r.Code, r.Log)
	}

	var view types.ProposalView
	data := binary.BigEndian.AppendUint64(nil, 1)
	c.query("/proposals", data, &view)
	require.Equal(t, "Active", view.State)
	require.Equal(t, uint256.NewInt(50), view.Tally.SumSquareRoots)

	var alpha types.AlphaView
	c.query("/alpha/", nil, &alpha)
	require.Equal(t, uint256.NewInt(2000), alpha.MatchingPool)

	finalizeAt := cfg.VotingEnd().Add(time.Minute)
	res = c.block(finalizeAt,
		c.owner.sign(t, tx.QFTxTypeFinalize, &tx.FinalizeTx{}),
		c.alice.sign(t, tx.QFTxTypeQueue, &tx.QueueTx{Proposal: 1}),
	)
	for _, r := range res {
		require.Equal(t, handler.CodeOK, r.Code, r.Log)
	}
	queued := types.DecodeEventQueue(res[1].Events[0])
	require.NotNil(t, queued)
	require.Equal(t, recipient, queued.Recipient)

	var acct types.AccountView
	c.query("/accounts/", recipient.Bytes(), &acct)
	require.Equal(t, queued.Shares, acct.Shares)
	require.True(t, acct.MaxRedeem.IsZero())

	var mech types.MechanismView
	c.query("/mechanism/", nil, &mech)
	require.True(t, mech.Globals.Finalized)
	require.Equal(t, uint256.NewInt(4000), mech.TotalAssets)
}

func TestFailedTxConsumesNonce(t *testing.T) {
	c := newTestChain(t)
	res := c.block(t0.Add(time.Hour),
		c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(5000)}),
		c.alice.sign(t, tx.QFTxTypeSend, &tx.SendTx{To: c.bob.addr, Amount: uint256.NewInt(100)}),
	)
	require.Equal(t, handler.CodeTxFailed, res[0].Code)
	require.Contains(t, res[0].Log, "insufficient funds")
	require.Equal(t, handler.CodeOK, res[1].Code)

	var acct types.AccountView
	c.query("/accounts/", c.alice.addr.Bytes(), &acct)
	require.Equal(t, uint64(2), acct.Nonce)
	require.Equal(t, uint256.NewInt(900), acct.Balance)
	require.False(t, acct.Participant.Registered)
}

func TestReplayRejected(t *testing.T) {
	c := newTestChain(t)
	stx := c.alice.sign(t, tx.QFTxTypeSend, &tx.SendTx{To: c.bob.addr, Amount: uint256.NewInt(1)})
	res := c.block(t0.Add(time.Hour), stx)
	require.Equal(t, handler.CodeOK, res[0].Code)

	res = c.block(t0.Add(2*time.Hour), stx)
	require.Equal(t, handler.CodeInvalidTx, res[0].Code)

	cres, err := c.app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: stx})
	require.NoError(t, err)
	require.Equal(t, handler.CodeInvalidTx, cres.Code)
}

func TestCheckTx(t *testing.T) {
	c := newTestChain(t)
	ctx := context.Background()

	res, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte("garbage")})
	require.NoError(t, err)
	require.Equal(t, handler.CodeInvalidTx, res.Code)

	first := c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(10)})
	second := c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(10)})
	res, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: first})
	require.NoError(t, err)
	require.Equal(t, handler.CodeOK, res.Code, res.Log)
	// ahead of the committed nonce is fine in the mempool
	res, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: second})
	require.NoError(t, err)
	require.Equal(t, handler.CodeOK, res.Code, res.Log)

	broke := c.bob.sign(t, tx.QFTxTypeFundPool, &tx.FundPoolTx{Amount: uint256.NewInt(1001)})
	res, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: broke})
	require.NoError(t, err)
	require.Equal(t, handler.CodeTxFailed, res.Code)
}

func TestCheckTxUsesLocalClock(t *testing.T) {
	c := newTestChain(t)
	ctx := context.Background()
	recipient := common.HexToAddress("0x21")
	cfg := types.DefaultGenesisAppState(c.owner.addr, t0).Params.Mechanism

	res := c.block(t0.Add(time.Hour),
		c.owner.sign(t, tx.QFTxTypePropose, &tx.ProposeTx{Recipient: recipient, Description: "library"}),
		c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(100)}),
	)
	for _, r := range res {
		require.Equal(t, handler.CodeOK, r.Code, r.Log)
	}
	vote := c.alice.sign(t, tx.QFTxTypeVote, &tx.VoteTx{Proposal: 1, Support: 1, Weight: uint256.NewInt(5), Recipient: recipient})

	// the local clock lags the last block, so the block time wins
	cres, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: vote})
	require.NoError(t, err)
	require.Equal(t, handler.CodeTxFailed, cres.Code)
	require.Contains(t, cres.Log, "outside voting window")

	// voting opens on the local clock before the next block is made
	c.app.now = cfg.VotingStart
	cres, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: vote})
	require.NoError(t, err)
	require.Equal(t, handler.CodeOK, cres.Code, cres.Log)

	// checking does not move the committed block time
	require.True(t, t0.Add(time.Hour).Equal(c.app.db.Header().BlockTime))
	res = c.block(cfg.VotingStart(), vote)
	require.Equal(t, handler.CodeOK, res[0].Code, res[0].Log)
}

func TestPrepareProposalDropsFailingTxs(t *testing.T) {
	c := newTestChain(t)
	good := c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(10)})
	dup := c.alice.sign(t, tx.QFTxTypeSignup, &tx.SignupTx{Amount: uint256.NewInt(10)})
	c.bob.nonce++
	gap := c.bob.sign(t, tx.QFTxTypeSend, &tx.SendTx{To: c.alice.addr, Amount: uint256.NewInt(1)})
	// alice's nonce 2 is only valid if the dropped duplicate consumed nonce 1
	after := c.alice.sign(t, tx.QFTxTypeSend, &tx.SendTx{To: c.bob.addr, Amount: uint256.NewInt(1)})

	res, err := c.app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{
		Height:     1,
		Time:       t0.Add(time.Hour),
		MaxTxBytes: 1 << 20,
		Txs:        [][]byte{good, dup, gap, []byte("garbage"), after},
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good}, res.Txs)
}

func TestProcessProposalRejectsForgery(t *testing.T) {
	c := newTestChain(t)
	btx := tx.NewQFTx(tx.QFTxTypeSend, 0, c.alice.addr, &tx.SendTx{To: c.bob.addr, Amount: uint256.NewInt(1)})
	require.NoError(t, btx.Sign(c.bob.priv, chainId))
	btx.Sender = c.alice.addr
	dat, err := tx.MarshalQFTx(btx)
	require.NoError(t, err)

	res, err := c.app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{Height: 1, Txs: [][]byte{dat}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, res.Status)
}

func TestQueryErrors(t *testing.T) {
	c := newTestChain(t)
	require.Equal(t, uint32(CodeQueryNotFound), c.query("/unknown/", nil, nil).Code)
	require.Equal(t, uint32(CodeQueryFailed), c.query("/accounts/", []byte{1, 2}, nil).Code)
	require.Equal(t, uint32(CodeQueryNotFound), c.query("/proposals/", []byte{9}, nil).Code)

	var proposers []common.Address
	c.query("/proposers/", nil, &proposers)
	require.Equal(t, []common.Address{c.owner.addr}, proposers)

	var all []types.ProposalView
	c.query("/proposals/", nil, &all)
	require.Empty(t, all)
}
