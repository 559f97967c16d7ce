package mechanism

import (
	"fmt"
	"time"

	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/qfmath"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Mechanism runs the quadratic funding round: signups and votes, the proposal
// lifecycle and the share vault. It is not safe for concurrent use; every
// mutating call runs to completion against a write buffer that is flushed to
// the KVStore only when the call succeeds.
type Mechanism struct {
	cfg      Config
	kv       KVStore
	store    records
	asset    Asset
	auth     Authorizer
	strategy Strategy
	clock    func() time.Time
	logger   log.Logger
	entered  bool
}

type Option func(*Mechanism)

// WithClock sets the time source. The chain passes the block time.
func WithClock(clock func() time.Time) Option {
	return func(m *Mechanism) { m.clock = clock }
}

func WithStrategy(s Strategy) Option {
	return func(m *Mechanism) { m.strategy = s }
}

func WithLogger(logger log.Logger) Option {
	return func(m *Mechanism) { m.logger = logger }
}

func New(cfg Config, kv KVStore, asset Asset, auth Authorizer, opts ...Option) (*Mechanism, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if asset.Decimals() != cfg.AssetDecimals {
		return nil, fmt.Errorf("%w: asset has %d decimals, config says %d", ErrInvalidInput, asset.Decimals(), cfg.AssetDecimals)
	}
	if auth == nil {
		auth = Open{}
	}
	m := &Mechanism{
		cfg:      cfg,
		kv:       kv,
		store:    records{kv},
		asset:    asset,
		auth:     auth,
		strategy: QuadraticVoting{},
		clock:    time.Now,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("module", "mechanism")
	return m, nil
}

func (m *Mechanism) now() time.Time {
	return m.clock()
}

// mutate runs fn with the reentrancy guard held and commits its writes only
// if it succeeds.
func (m *Mechanism) mutate(op string, fn func() error) error {
	if m.entered {
		return ErrReentrant
	}
	m.entered = true
	buf := newOverlay(m.kv)
	m.store = records{buf}
	defer func() {
		m.store = records{m.kv}
		m.entered = false
	}()
	if err := fn(); err != nil {
		m.logger.Debug("call rejected", "op", op, "err", err)
		return err
	}
	return buf.commit()
}

func (m *Mechanism) Config() Config {
	return m.cfg
}

func (m *Mechanism) Globals() (*Globals, error) {
	return m.store.globals(m.cfg)
}

func (m *Mechanism) Participant(addr common.Address) (*Participant, error) {
	return m.store.participant(addr)
}

// VotingPower returns the unspent voting power of addr.
func (m *Mechanism) VotingPower(addr common.Address) (*uint256.Int, error) {
	p, err := m.store.participant(addr)
	if err != nil {
		return nil, err
	}
	return p.VotingPower, nil
}

func (m *Mechanism) Proposal(id uint64) (*Proposal, error) {
	return m.store.proposal(id)
}

// ProposalForRecipient returns the id of the proposal paying recipient, or 0.
func (m *Mechanism) ProposalForRecipient(recipient common.Address) (uint64, error) {
	return m.store.proposalForRecipient(recipient)
}

func (m *Mechanism) Vote(id uint64, voter common.Address) (*VoteRecord, error) {
	return m.store.vote(id, voter)
}

func (m *Mechanism) ProjectTally(id uint64) (qf.ProjectTally, error) {
	if _, err := m.store.proposal(id); err != nil {
		return qf.ProjectTally{}, err
	}
	return m.store.tally(id)
}

func (m *Mechanism) Totals() (qf.Totals, error) {
	return m.store.totals()
}

func (m *Mechanism) Alpha() (qf.Alpha, error) {
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return qf.Alpha{}, err
	}
	return g.Alpha, nil
}

// Tally returns the raw sums of a proposal with funding weighted by the
// current alpha. Canceled proposals report zeros.
func (m *Mechanism) Tally(id uint64) (qf.Tally, error) {
	p, err := m.store.proposal(id)
	if err != nil {
		return qf.Tally{}, err
	}
	if p.Canceled {
		return qf.ZeroTally(), nil
	}
	t, err := m.store.tally(id)
	if err != nil {
		return qf.Tally{}, err
	}
	alpha, err := m.Alpha()
	if err != nil {
		return qf.Tally{}, err
	}
	return qf.Read(t, alpha)
}

// TotalFunding is the alpha-weighted funding of every counted proposal.
func (m *Mechanism) TotalFunding() (*uint256.Int, error) {
	totals, err := m.store.totals()
	if err != nil {
		return nil, err
	}
	alpha, err := m.Alpha()
	if err != nil {
		return nil, err
	}
	return qf.TotalFunding(totals, alpha)
}

// OptimalAlpha returns the alpha that makes total funding match the deposits
// plus matchingPool. A nil matchingPool uses the funds already in the pool.
func (m *Mechanism) OptimalAlpha(matchingPool *uint256.Int) (qf.Alpha, error) {
	g, err := m.store.globals(m.cfg)
	if err != nil {
		return qf.Alpha{}, err
	}
	if matchingPool == nil {
		matchingPool = g.MatchingFunds
	}
	totals, err := m.store.totals()
	if err != nil {
		return qf.Alpha{}, err
	}
	return qf.OptimalAlpha(matchingPool, g.TotalDeposits, totals.TotalQuadraticSum, totals.TotalLinearSum, m.cfg.AssetDecimals)
}

// view is the Ledger handed to strategy hooks.
type view struct {
	m *Mechanism
}

var _ Ledger = view{}

func (v view) Config() Config { return v.m.cfg }
func (v view) Proposal(id uint64) (*Proposal, error) { return v.m.Proposal(id) }
func (v view) ProjectTally(id uint64) (qf.ProjectTally, error) { return v.m.ProjectTally(id) }
func (v view) Totals() (qf.Totals, error) { return v.m.Totals() }
func (v view) Alpha() (qf.Alpha, error) { return v.m.Alpha() }
func (v view) Tally(id uint64) (qf.Tally, error) { return v.m.Tally(id) }
func (v view) CanPropose(account common.Address) bool { return v.m.auth.CanPropose(account) }
func (v view) TotalAssets() (*uint256.Int, error) { return v.m.TotalAssets() }
func (v view) TotalSupply() (*uint256.Int, error) { return v.m.TotalSupply() }

func (v view) RecordTally(id uint64, tally qf.ProjectTally, totals qf.Totals) error {
	if !qfmath.Fits(tally.SumContributions) || !qfmath.Fits(tally.SumSquareRoots) {
		return ErrOverflow
	}
	if err := v.m.store.setTally(id, tally); err != nil {
		return err
	}
	return v.m.store.setTotals(totals)
}

func (v view) PushAssets(to common.Address, amount *uint256.Int) error {
	return v.m.asset.PushTo(to, amount)
}
