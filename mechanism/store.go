package mechanism

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/qfmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// KVStore is the storage the mechanism writes its records to. Get returns
// nil, nil for a missing key.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

var (
	KeyGlobals     = "m/g"
	KeyTotals      = "m/tt"
	KeyParticipant = "m/u%x"
	KeyProposal    = "m/p%v"
	KeyRecipient   = "m/r%x"
	KeyVote        = "m/v%v/%x"
	KeyTally       = "m/t%v"
	KeyShares      = "m/sb%x"
	KeyAllowance   = "m/sa%x/%x"
)

// MemStore is an in-memory KVStore.
type MemStore map[string][]byte

func NewMemStore() MemStore {
	return make(MemStore)
}

func (s MemStore) Get(key []byte) ([]byte, error) {
	return s[string(key)], nil
}

func (s MemStore) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s[string(key)] = v
	return nil
}

// records encodes mechanism records on top of a KVStore.
type records struct {
	kv KVStore
}

func (r records) get(key string, v any) (bool, error) {
	val, err := r.kv.Get([]byte(key))
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	if err = json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r records) set(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Set([]byte(key), val)
}

func (r records) globals(cfg Config) (*Globals, error) {
	g := new(Globals)
	ok, err := r.get(KeyGlobals, g)
	if err != nil {
		return nil, err
	}
	if !ok {
		g.Alpha = cfg.Alpha
	}
	g.TotalDeposits = qfmath.OrZero(g.TotalDeposits)
	g.MatchingFunds = qfmath.OrZero(g.MatchingFunds)
	g.TotalSupply = qfmath.OrZero(g.TotalSupply)
	return g, nil
}

func (r records) setGlobals(g *Globals) error {
	return r.set(KeyGlobals, g)
}

func (r records) totals() (qf.Totals, error) {
	t := qf.NewTotals()
	if _, err := r.get(KeyTotals, &t); err != nil {
		return t, err
	}
	t.TotalQuadraticSum = qfmath.OrZero(t.TotalQuadraticSum)
	t.TotalLinearSum = qfmath.OrZero(t.TotalLinearSum)
	return t, nil
}

func (r records) setTotals(t qf.Totals) error {
	return r.set(KeyTotals, t)
}

func (r records) participant(addr common.Address) (*Participant, error) {
	p := &Participant{Address: addr}
	if _, err := r.get(fmt.Sprintf(KeyParticipant, addr), p); err != nil {
		return nil, err
	}
	p.Deposited = qfmath.OrZero(p.Deposited)
	p.VotingPower = qfmath.OrZero(p.VotingPower)
	return p, nil
}

func (r records) setParticipant(p *Participant) error {
	return r.set(fmt.Sprintf(KeyParticipant, p.Address), p)
}

func (r records) proposal(id uint64) (*Proposal, error) {
	p := new(Proposal)
	ok, err := r.get(fmt.Sprintf(KeyProposal, id), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNoexists
	}
	p.SharesMinted = qfmath.OrZero(p.SharesMinted)
	p.Distributed = qfmath.OrZero(p.Distributed)
	return p, nil
}

func (r records) setProposal(p *Proposal) error {
	return r.set(fmt.Sprintf(KeyProposal, p.ID), p)
}

func (r records) proposalForRecipient(recipient common.Address) (uint64, error) {
	var id uint64
	_, err := r.get(fmt.Sprintf(KeyRecipient, recipient), &id)
	return id, err
}

func (r records) setProposalForRecipient(recipient common.Address, id uint64) error {
	return r.set(fmt.Sprintf(KeyRecipient, recipient), id)
}

func (r records) vote(id uint64, voter common.Address) (*VoteRecord, error) {
	v := new(VoteRecord)
	if _, err := r.get(fmt.Sprintf(KeyVote, id, voter), v); err != nil {
		return nil, err
	}
	v.Weight = qfmath.OrZero(v.Weight)
	return v, nil
}

func (r records) setVote(id uint64, voter common.Address, v *VoteRecord) error {
	return r.set(fmt.Sprintf(KeyVote, id, voter), v)
}

func (r records) tally(id uint64) (qf.ProjectTally, error) {
	t := qf.NewProjectTally()
	if _, err := r.get(fmt.Sprintf(KeyTally, id), &t); err != nil {
		return t, err
	}
	t.SumContributions = qfmath.OrZero(t.SumContributions)
	t.SumSquareRoots = qfmath.OrZero(t.SumSquareRoots)
	return t, nil
}

func (r records) setTally(id uint64, t qf.ProjectTally) error {
	return r.set(fmt.Sprintf(KeyTally, id), t)
}

func (r records) shares(holder common.Address) (*uint256.Int, error) {
	v := new(uint256.Int)
	if _, err := r.get(fmt.Sprintf(KeyShares, holder), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r records) setShares(holder common.Address, v *uint256.Int) error {
	return r.set(fmt.Sprintf(KeyShares, holder), v)
}

func (r records) allowance(owner, spender common.Address) (*uint256.Int, error) {
	v := new(uint256.Int)
	if _, err := r.get(fmt.Sprintf(KeyAllowance, owner, spender), v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r records) setAllowance(owner, spender common.Address, v *uint256.Int) error {
	return r.set(fmt.Sprintf(KeyAllowance, owner, spender), v)
}

// overlay buffers writes of one call so a failed call leaves the underlying
// store untouched. Writes are flushed in key order.
type overlay struct {
	kv    KVStore
	dirty map[string][]byte
}

func newOverlay(kv KVStore) *overlay {
	return &overlay{kv: kv, dirty: make(map[string][]byte)}
}

func (o *overlay) Get(key []byte) ([]byte, error) {
	if v, ok := o.dirty[string(key)]; ok {
		return v, nil
	}
	return o.kv.Get(key)
}

func (o *overlay) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	o.dirty[string(key)] = v
	return nil
}

func (o *overlay) commit() error {
	keys := make([]string, 0, len(o.dirty))
	for k := range o.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := o.kv.Set([]byte(k), o.dirty[k]); err != nil {
			return err
		}
	}
	return nil
}
