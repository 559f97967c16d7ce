package mechanism

import (
	"errors"
	"testing"
	"time"

	"github.com/calehh/qf-app/qf"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	pool       = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	proposer   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	funder     = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	alice      = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob        = common.HexToAddress("0x0000000000000000000000000000000000000012")
	carol      = common.HexToAddress("0x0000000000000000000000000000000000000013")
	recipient1 = common.HexToAddress("0x0000000000000000000000000000000000000021")
	recipient2 = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var errTransferFailed = errors.New("transfer failed")

type testAsset struct {
	decimals uint8
	pool     common.Address
	balances map[common.Address]*uint256.Int
	failPush bool
	onPush   func()
}

func newTestAsset(decimals uint8) *testAsset {
	return &testAsset{decimals: decimals, pool: pool, balances: make(map[common.Address]*uint256.Int)}
}

func (a *testAsset) mint(to common.Address, amount *uint256.Int) {
	a.balances[to] = new(uint256.Int).Add(a.balance(to), amount)
}

func (a *testAsset) balance(account common.Address) *uint256.Int {
	if b, ok := a.balances[account]; ok {
		return b
	}
	return new(uint256.Int)
}

func (a *testAsset) move(from, to common.Address, amount *uint256.Int) error {
	if a.balance(from).Lt(amount) {
		return errTransferFailed
	}
	a.balances[from] = new(uint256.Int).Sub(a.balance(from), amount)
	a.balances[to] = new(uint256.Int).Add(a.balance(to), amount)
	return nil
}

func (a *testAsset) PullFrom(payer common.Address, amount *uint256.Int) error {
	return a.move(payer, a.pool, amount)
}

func (a *testAsset) PushTo(to common.Address, amount *uint256.Int) error {
	if a.failPush {
		return errTransferFailed
	}
	if a.onPush != nil {
		a.onPush()
	}
	return a.move(a.pool, to, amount)
}

func (a *testAsset) BalanceOf(account common.Address) (*uint256.Int, error) {
	return new(uint256.Int).Set(a.balance(account)), nil
}

func (a *testAsset) Decimals() uint8 {
	return a.decimals
}

type fixture struct {
	t     *testing.T
	cfg   Config
	kv    MemStore
	asset *testAsset
	m     *Mechanism
	now   time.Time
}

func testConfig(decimals uint8) Config {
	return Config{
		Name:          "Round",
		Symbol:        "QFS",
		AssetDecimals: decimals,
		Owner:         owner,
		Pool:          pool,
		StartTime:     t0,
		VotingDelay:   time.Hour,
		VotingPeriod:  24 * time.Hour,
		TimelockDelay: time.Hour,
		GracePeriod:   24 * time.Hour,
		Alpha:         qf.PureQuadratic(),
	}
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	f := &fixture{t: t, cfg: cfg, kv: NewMemStore(), asset: newTestAsset(cfg.AssetDecimals), now: t0}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	m, err := New(cfg, f.kv, f.asset, nil, opts...)
	require.NoError(t, err)
	f.m = m
	return f
}

func (f *fixture) at(t time.Time) {
	f.now = t
}

func (f *fixture) votingStart() time.Time {
	return f.cfg.VotingStart()
}

func (f *fixture) afterVoting() time.Time {
	return f.cfg.VotingEnd().Add(time.Second)
}

func (f *fixture) signup(user common.Address, amount uint64) {
	f.asset.mint(user, uint256.NewInt(amount))
	_, err := f.m.Signup(user, uint256.NewInt(amount))
	require.NoError(f.t, err)
}

func (f *fixture) fund(amount uint64) {
	f.asset.mint(funder, uint256.NewInt(amount))
	require.NoError(f.t, f.m.FundMatchingPool(funder, uint256.NewInt(amount)))
}

func (f *fixture) propose(to common.Address) uint64 {
	id, err := f.m.Propose(proposer, to, "fund "+to.Hex())
	require.NoError(f.t, err)
	return id
}

func (f *fixture) vote(user common.Address, id uint64, weight uint64) {
	p, err := f.m.Proposal(id)
	require.NoError(f.t, err)
	_, err = f.m.CastVote(user, id, VoteFor, uint256.NewInt(weight), p.Recipient)
	require.NoError(f.t, err)
}

func (f *fixture) finalize() time.Time {
	r, err := f.m.FinalizeVoteTally(owner)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) state(id uint64) ProposalState {
	st, err := f.m.State(id)
	require.NoError(f.t, err)
	return st
}

func (f *fixture) poolBalance() *uint256.Int {
	return f.asset.balance(pool)
}

// runScenario signs three voters up with deposit each, has all of them vote
// weight 20 on two proposals and funds the pool with matching.
func (f *fixture) runScenario(deposit, matching uint64) (uint64, uint64) {
	p1 := f.propose(recipient1)
	p2 := f.propose(recipient2)
	for _, u := range []common.Address{alice, bob, carol} {
		f.signup(u, deposit)
	}
	f.fund(matching)
	f.at(f.votingStart())
	for _, u := range []common.Address{alice, bob, carol} {
		f.vote(u, p1, 20)
		f.vote(u, p2, 20)
	}
	return p1, p2
}

func amt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
