package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/tx"
	"github.com/calehh/qf-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState    = "s"
	KeyParams   = "cfg"
	KeyAccount  = "a%x"
	KeyProposer = "r%x"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrTxNonceInvalid    = errors.New("nonce invalid")
	ErrParamsNotSet      = errors.New("params not set")
	ErrGenesisApplied    = errors.New("genesis already applied")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type StateHeader struct {
	Height    uint64    `json:"height"`
	ChainId   string    `json:"chainId"`
	BlockTime time.Time `json:"blockTime"`
	Hash      []byte    `json:"hash"`
	RootHash  []byte    `json:"rootHash"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.Hash = common.CopyBytes(h.Hash)
	n.RootHash = common.CopyBytes(h.RootHash)
	return &n
}

// State is the working state of one block. Writes stay in a dirty set until
// Update flushes them to the tree in key order.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
	params *types.Params
	dirty  map[string][]byte
}

var _ mechanism.KVStore = (*State)(nil)

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		dbVer:  0,
		header: new(StateHeader),
		dirty:  make(map[string][]byte),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		params: s.params,
		dirty:  make(map[string][]byte),
	}
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Clone copies the uncommitted writes so a tx can be run and thrown away.
func (s *State) Clone() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		header: s.header.Clone(),
		params: s.params,
		dirty:  make(map[string][]byte, len(s.dirty)),
	}
	for k, v := range s.dirty {
		n.dirty[k] = v
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.Get([]byte(KeyState))
	if err != nil {
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

// Get reads through the dirty set to the tree. A missing key reads as nil.
func (s *State) Get(key []byte) ([]byte, error) {
	if v, ok := s.dirty[string(key)]; ok {
		return v, nil
	}
	val, err := s.db.Get(key)
	if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return nil, err
	}
	return val, nil
}

func (s *State) Set(key, value []byte) error {
	s.dirty[string(key)] = common.CopyBytes(value)
	return nil
}

func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	s.dirty[KeyState] = val

	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, err = s.db.Set([]byte(k), s.dirty[k])
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.dirty = make(map[string][]byte)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) BlockTime() time.Time {
	return s.header.BlockTime
}

func (s *State) SetBlockTime(t time.Time) {
	s.header.BlockTime = t.UTC()
}

func (s *State) Params() (*types.Params, error) {
	if s.params != nil {
		return s.params, nil
	}
	val, err := s.Get([]byte(KeyParams))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrParamsNotSet
	}
	p := new(types.Params)
	if err = json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	s.params = p
	return p, nil
}

// InitGenesis stores the round parameters, asset allocations and proposer
// set of the genesis app state.
func (s *State) InitGenesis(gs *types.GenesisAppState) error {
	if _, err := s.Params(); err == nil {
		return ErrGenesisApplied
	}
	if err := gs.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(gs.Params)
	if err != nil {
		return err
	}
	if err = s.Set([]byte(KeyParams), val); err != nil {
		return err
	}
	p := gs.Params
	s.params = &p
	for _, a := range gs.Allocations {
		acnt, err := s.GetAccount(a.Address)
		if err != nil {
			return err
		}
		acnt.Balance.Set(a.Amount)
		if err = s.setAccount(acnt); err != nil {
			return err
		}
	}
	for _, p := range gs.Proposers {
		if err = s.setProposer(p, true); err != nil {
			return err
		}
	}
	return nil
}

// Mechanism binds the funding round to this state. Its clock is the block
// time and its asset is the chain's bank.
func (s *State) Mechanism() (*mechanism.Mechanism, error) {
	p, err := s.Params()
	if err != nil {
		return nil, err
	}
	var auth mechanism.Authorizer = mechanism.Open{}
	if p.RestrictProposers {
		auth = ProposerRegistry{st: s}
	}
	bank := &Bank{st: s, pool: p.Mechanism.Pool, decimals: p.Mechanism.AssetDecimals}
	return mechanism.New(p.Mechanism, s, bank, auth,
		mechanism.WithClock(s.BlockTime),
		mechanism.WithStrategy(p.NewStrategy()),
		mechanism.WithLogger(s.logger),
	)
}

// Verify checks the signature and nonce of a tx and returns its sender.
func (s *State) Verify(btx *tx.QFTx, allowNonceGap bool) (sender common.Address, err error) {
	sender, err = btx.Signer(s.header.ChainId)
	if err != nil {
		return
	}
	a, err := s.GetAccount(sender)
	if err != nil {
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = fmt.Errorf("%w: account %d, tx %d", ErrTxNonceInvalid, a.Nonce, btx.Nonce)
	}
	return
}

func (s *State) IncNonce(addr common.Address) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	a.Nonce += 1
	return s.setAccount(a)
}

// Proposers lists the accounts allowed to propose, in address order.
func (s *State) Proposers() ([]common.Address, error) {
	start := []byte("r")
	end := PrefixEndBytes(start)
	set := make(map[string][]byte)
	it, err := s.db.Iterator(start, end, true)
	if err != nil {
		return nil, err
	}
	for ; it.Valid(); it.Next() {
		set[string(it.Key())] = it.Value()
	}
	if err = it.Close(); err != nil {
		return nil, err
	}
	for k, v := range s.dirty {
		if k >= string(start) && k < string(end) {
			set[k] = v
		}
	}
	res := make([]common.Address, 0, len(set))
	for k, v := range set {
		if len(v) == 1 && v[0] == 1 {
			res = append(res, common.HexToAddress(k[1:]))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Cmp(res[j]) < 0
	})
	return res, nil
}

func (s *State) IsProposer(addr common.Address) (bool, error) {
	val, err := s.Get([]byte(fmt.Sprintf(KeyProposer, addr)))
	if err != nil {
		return false, err
	}
	return len(val) == 1 && val[0] == 1, nil
}

func (s *State) setProposer(addr common.Address, allowed bool) error {
	val := []byte{0}
	if allowed {
		val[0] = 1
	}
	return s.Set([]byte(fmt.Sprintf(KeyProposer, addr)), val)
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
