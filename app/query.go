package app

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"

	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/state"
	"github.com/calehh/qf-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	CodeQueryFailed   = 1
	CodeQueryNotFound = 404
)

var ErrQueryData = errors.New("malformed query data")

func (app *QFApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNotFound
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// viewQuerier runs a read against committed state and encodes its result as
// JSON. A failed read is reported in the response, never as an ABCI error.
type viewQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	read   func(st *state.State, data []byte) (any, error)
}

func (q *viewQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var out any
	height, err := q.db.View(func(st *state.State) (err error) {
		out, err = q.read(st, req.Data)
		return
	})
	if err != nil {
		q.logger.Debug("query fail", "path", req.Path, "err", err)
		res.Code = CodeQueryFailed
		if errors.Is(err, mechanism.ErrProposalNoexists) {
			res.Code = CodeQueryNotFound
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Height = int64(height)
	res.Value, err = json.Marshal(out)
	return
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &viewQuerier{db: db, logger: logger, read: readAccount}
}

func readAccount(st *state.State, data []byte) (any, error) {
	if len(data) != common.AddressLength {
		return nil, ErrQueryData
	}
	addr := common.BytesToAddress(data)
	a, err := st.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	view := &types.AccountView{Address: addr, Nonce: a.Nonce, Balance: a.Balance}
	if view.Proposer, err = st.IsProposer(addr); err != nil {
		return nil, err
	}
	m, err := st.Mechanism()
	if err != nil {
		return nil, err
	}
	if view.Shares, err = m.BalanceOf(addr); err != nil {
		return nil, err
	}
	if view.MaxRedeem, err = m.MaxRedeem(addr); err != nil {
		return nil, err
	}
	if view.Participant, err = m.Participant(addr); err != nil {
		return nil, err
	}
	return view, nil
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &viewQuerier{db: db, logger: logger, read: readProposals}
}

func proposalView(m *mechanism.Mechanism, id uint64) (*types.ProposalView, error) {
	p, err := m.Proposal(id)
	if err != nil {
		return nil, err
	}
	s, err := m.State(id)
	if err != nil {
		return nil, err
	}
	t, err := m.Tally(id)
	if err != nil {
		return nil, err
	}
	return &types.ProposalView{Proposal: p, State: s.String(), Tally: t}, nil
}

// readProposals returns one proposal when data holds a big-endian id, or all
// of them when data is empty.
func readProposals(st *state.State, data []byte) (any, error) {
	if len(data) > 8 {
		return nil, ErrQueryData
	}
	m, err := st.Mechanism()
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		var buf [8]byte
		copy(buf[8-len(data):], data)
		return proposalView(m, binary.BigEndian.Uint64(buf[:]))
	}
	g, err := m.Globals()
	if err != nil {
		return nil, err
	}
	views := make([]*types.ProposalView, 0, g.ProposalCount)
	for id := uint64(1); id <= g.ProposalCount; id++ {
		v, err := proposalView(m, id)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func NewMechanismQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &viewQuerier{db: db, logger: logger, read: readMechanism}
}

func readMechanism(st *state.State, _ []byte) (any, error) {
	p, err := st.Params()
	if err != nil {
		return nil, err
	}
	m, err := st.Mechanism()
	if err != nil {
		return nil, err
	}
	view := &types.MechanismView{Config: m.Config(), Strategy: p.Strategy}
	if view.Globals, err = m.Globals(); err != nil {
		return nil, err
	}
	if view.Totals, err = m.Totals(); err != nil {
		return nil, err
	}
	if view.TotalFunding, err = m.TotalFunding(); err != nil {
		return nil, err
	}
	if view.TotalAssets, err = m.TotalAssets(); err != nil {
		return nil, err
	}
	return view, nil
}

func NewAlphaQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &viewQuerier{db: db, logger: logger, read: readAlpha}
}

// readAlpha computes the optimal alpha for the decimal pool size in data, or
// for the funds already in the matching pool when data is empty.
func readAlpha(st *state.State, data []byte) (any, error) {
	m, err := st.Mechanism()
	if err != nil {
		return nil, err
	}
	g, err := m.Globals()
	if err != nil {
		return nil, err
	}
	view := &types.AlphaView{Current: g.Alpha, MatchingPool: g.MatchingFunds}
	if len(data) > 0 {
		if view.MatchingPool, err = uint256.FromDecimal(string(data)); err != nil {
			return nil, ErrQueryData
		}
	}
	if view.Optimal, err = m.OptimalAlpha(view.MatchingPool); err != nil {
		return nil, err
	}
	return view, nil
}

func NewProposerQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return &viewQuerier{db: db, logger: logger, read: func(st *state.State, _ []byte) (any, error) {
		return st.Proposers()
	}}
}
