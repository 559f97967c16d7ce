package handler

import (
	"context"
	"testing"
	"time"

	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

func newState(t *testing.T) *state.State {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gs := types.DefaultGenesisAppState(owner, start)
	gs.Allocations = []types.Allocation{{Address: alice, Amount: uint256.NewInt(500)}}
	st := db.NewState()
	st.SetChainId("qf-test")
	st.SetBlockTime(start)
	require.NoError(t, st.InitGenesis(&gs))
	return st
}

func TestNewTxHandlersCoversEveryType(t *testing.T) {
	hdlrs := NewTxHandlers(cmtlog.NewNopLogger())
	for tp := tx.QFTxTypeSignup; tp <= tx.QFTxTypeSend; tp++ {
		_, ok := hdlrs[tp]
		require.True(t, ok, tp.String())
	}
}

func TestCheckDoesNotWrite(t *testing.T) {
	st := newState(t)
	h := NewTxHandlers(cmtlog.NewNopLogger())[tx.QFTxTypeSignup]
	btx := tx.NewQFTx(tx.QFTxTypeSignup, 0, alice, &tx.SignupTx{Amount: uint256.NewInt(200)})

	res, err := h.Check(context.Background(), st, btx)
	require.NoError(t, err)
	require.Equal(t, CodeOK, res.Code)
	bal, err := st.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(500), bal)

	btx.Tx = &tx.SignupTx{Amount: uint256.NewInt(501)}
	res, err = h.Check(context.Background(), st, btx)
	require.NoError(t, err)
	require.Equal(t, CodeTxFailed, res.Code)
	require.Contains(t, res.Log, "insufficient funds")
}

func TestProcessEmitsEvent(t *testing.T) {
	st := newState(t)
	h := NewTxHandlers(cmtlog.NewNopLogger())[tx.QFTxTypePropose]
	btx := tx.NewQFTx(tx.QFTxTypePropose, 0, alice, &tx.ProposeTx{
		Recipient:   common.HexToAddress("0x21"),
		Description: "community garden",
	})
	res, err := h.Process(context.Background(), st, btx)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	ev := types.DecodeEventPropose(res.Events[0])
	require.NotNil(t, ev)
	require.Equal(t, uint64(1), ev.Proposal)
	require.Equal(t, alice, ev.Proposer)

	_, err = h.Process(context.Background(), st, btx)
	require.Error(t, err)
}

func TestPayloadMismatch(t *testing.T) {
	st := newState(t)
	h := NewTxHandlers(cmtlog.NewNopLogger())[tx.QFTxTypeVote]
	btx := tx.NewQFTx(tx.QFTxTypeVote, 0, alice, &tx.CancelTx{Proposal: 1})
	_, err := h.Process(context.Background(), st, btx)
	require.ErrorIs(t, err, tx.ErrInvalidTx)
}
