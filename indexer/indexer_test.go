package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/qf-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000012")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000021")
)

type fakeChain struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
}

func (f *fakeChain) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	res := &coretypes.ResultStatus{}
	res.SyncInfo.LatestBlockHeight = f.latest
	return res, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error) {
	return &coretypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func ok(events ...abci.Event) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: abci.CodeTypeOK, Events: events}
}

func newFakeChain() *fakeChain {
	finalized := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	return &fakeChain{
		latest: 4,
		blocks: map[int64][]*abci.ExecTxResult{
			1: {ok(types.EncodeEventPropose(&types.EventPropose{Proposal: 1, Proposer: alice, Recipient: recipient, Description: "library"}))},
			2: {
				ok(types.EncodeEventVote(&types.EventVote{Proposal: 1, Voter: alice, Weight: uint256.NewInt(20), Remaining: uint256.NewInt(600)})),
				ok(types.EncodeEventVote(&types.EventVote{Proposal: 1, Voter: bob, Weight: uint256.NewInt(30), Remaining: uint256.NewInt(100)})),
				{Code: 1, Log: "already voted", Events: []abci.Event{
					types.EncodeEventVote(&types.EventVote{Proposal: 1, Voter: bob, Weight: uint256.NewInt(1), Remaining: uint256.NewInt(0)}),
				}},
			},
			3: {
				ok(types.EncodeEventFinalize(&types.EventFinalize{FinalizedAt: finalized, RedemptionStart: finalized.Add(24 * time.Hour)})),
				ok(types.EncodeEventQueue(&types.EventQueue{Proposal: 1, Recipient: recipient, Shares: uint256.NewInt(3600), Distributed: uint256.NewInt(0)})),
			},
			4: {ok(types.EncodeEventRedeem(&types.EventRedeem{Caller: recipient, Owner: recipient, Receiver: recipient, Shares: uint256.NewInt(3600), Assets: uint256.NewInt(3900)}))},
		},
	}
}

func newTestIndexer(t *testing.T, src BlockSource) (*ChainIndexer, string) {
	path := filepath.Join(t.TempDir(), "indexer.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	c, err := NewChainIndexerWithDB(cmtlog.NewNopLogger(), db, src, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, path
}

func TestSync(t *testing.T) {
	c, path := newTestIndexer(t, newFakeChain())
	require.Equal(t, int64(1), c.Height)
	require.NoError(t, c.Sync(context.Background()))
	require.Equal(t, int64(5), c.Height)

	p, err := c.getProposalById(1)
	require.NoError(t, err)
	require.Equal(t, ProposalStatusQueued, p.Status)
	require.Equal(t, uint64(2), p.VoteCount)
	require.Equal(t, "3600", p.Shares)
	require.Equal(t, uint64(3), p.QueueHeight)

	votes, total, err := c.getVotes(1, "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(2), total)
	require.Equal(t, bob.Hex(), votes[1].Voter)
	require.Equal(t, "30", votes[1].Weight)

	round, err := c.getRound()
	require.NoError(t, err)
	require.NotNil(t, round)
	require.Equal(t, round.FinalizedAt+24*3600, round.RedemptionStart)

	// a restarted indexer resumes after the last indexed block
	db, err := OpenDB(path)
	require.NoError(t, err)
	restarted, err := NewChainIndexerWithDB(cmtlog.NewNopLogger(), db, newFakeChain(), time.Second)
	require.NoError(t, err)
	defer restarted.Close()
	require.Equal(t, int64(5), restarted.Height)
}

func TestCancel(t *testing.T) {
	chain := &fakeChain{latest: 2, blocks: map[int64][]*abci.ExecTxResult{
		1: {ok(types.EncodeEventPropose(&types.EventPropose{Proposal: 1, Proposer: alice, Recipient: recipient, Description: "park"}))},
		2: {ok(types.EncodeEventCancel(&types.EventCancel{Proposal: 1, Proposer: alice}))},
	}}
	c, _ := newTestIndexer(t, chain)
	require.NoError(t, c.Sync(context.Background()))
	p, err := c.getProposalById(1)
	require.NoError(t, err)
	require.Equal(t, ProposalStatusCanceled, p.Status)
}

func TestBadEventStopsAtBlock(t *testing.T) {
	chain := &fakeChain{latest: 2, blocks: map[int64][]*abci.ExecTxResult{
		1: {ok(types.EncodeEventPropose(&types.EventPropose{Proposal: 1, Proposer: alice, Recipient: recipient, Description: "park"}))},
		2: {ok(abci.Event{Type: types.EventVoteType})},
	}}
	c, _ := newTestIndexer(t, chain)
	require.ErrorIs(t, c.Sync(context.Background()), ErrEventDecode)
	require.Equal(t, int64(2), c.Height)
	_, total, err := c.getVotes(1, "", 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := newTestIndexer(t, newFakeChain())
	require.NoError(t, c.Sync(context.Background()))
	h := NewService("", c).Handler()

	w := post(t, h, "/getProposals", GetProposalsReq{Proposer: alice.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var proposals GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	require.Equal(t, uint64(1), proposals.Total)
	require.Len(t, proposals.Proposals[0].Votes, 2)

	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: 7})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, h, "/getVotes", GetVotesReq{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = post(t, h, "/getVotes", GetVotesReq{Voter: bob.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var votes GetVotesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &votes))
	require.Equal(t, uint64(1), votes.Total)

	w = post(t, h, "/getRedemptions", GetRedemptionsReq{Owner: recipient.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var redemptions GetRedemptionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redemptions))
	require.Len(t, redemptions.Redemptions, 1)
	require.Equal(t, "3900", redemptions.Redemptions[0].Assets)

	req := httptest.NewRequest(http.MethodGet, "/round", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), `"finalized":true`)
}
