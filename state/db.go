package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("qf", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return newStateDB(ldb, dir, logger)
}

// NewMemStateDB keeps the tree in memory. Used by tests.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return newStateDB(dbm.NewMemDB(), "", logger)
}

func newStateDB(ldb dbm.DB, dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "qfdb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	err = st.load()
	if err != nil {
		logger.Error("from qfdb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// Update flushes st into the working tree. It takes the write lock since the
// tree is shared with readers of the committed state.
func (db *StateDB) Update(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return st.Update()
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// View runs fn against a throwaway copy of the committed state, so reads
// through the mechanism never race with block execution.
func (db *StateDB) View(fn func(st *State) error) (height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st := db.state.Clone()
	height = st.header.Height
	err = fn(st)
	return
}

func (db *StateDB) GetAccount(addr common.Address) (acnt *Account, height uint64, err error) {
	height, err = db.View(func(st *State) error {
		acnt, err = st.GetAccount(addr)
		return err
	})
	return
}
