package state

import (
	"sync"

	"github.com/calehh/democracy-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("democracy", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return newStateDB(dir, ldb, logger)
}

// NewMemStateDB keeps the tree in memory. It backs tests and throwaway nodes.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return newStateDB("", dbm.NewMemDB(), logger)
}

func newStateDB(dir string, ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "statedb")
	tdb := iavl.NewMutableTree(ldb, 128, true, NewTreeLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	err = st.load()
	if err != nil {
		logger.Error("statedb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	return
}

// Close closes the tree and then the backing database; the tree leaves its
// database open.
func (db *StateDB) Close() error {
	if err := db.db.Close(); err != nil {
		return err
	}
	return db.ldb.Close()
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

// Update flushes st into the working tree. Queries are held off meanwhile.
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

// View runs fn against a clone of the committed state.
func (db *StateDB) View(fn func(st *State) error) (height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st := db.state.Clone()
	return st.header.Height, fn(st)
}

func (db *StateDB) GetAccountByIndex(idx uint64) (acnt *Account, height uint64, err error) {
	height, err = db.View(func(st *State) error {
		a, err := st.GetAccount(idx)
		if a != nil {
			acnt = a.Clone()
		}
		return err
	})
	return
}

func (db *StateDB) GetAccountByAddress(id types.AccountID) (acnt *Account, height uint64, err error) {
	height, err = db.View(func(st *State) error {
		a, err := st.FindAccountByID(id)
		if a != nil {
			acnt = a.Clone()
		}
		return err
	})
	return
}
