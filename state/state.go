package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/calehh/democracy-app/tx"
	"github.com/calehh/democracy-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyState        = "s"
	KeyAccountIndex = "i%s"
	KeyAccountBody  = "a%016x"
	KeyCouncil      = "k%s"
	KeyParams       = "g"
)

var (
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrTxPubKeyInvalid      = errors.New("pubkey invalid")
	ErrTxNotCouncil         = errors.New("sender is not a council member")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
)

// State is the view of one block. Writes are buffered and only reach the
// tree in Update.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header        *StateHeader
	idxs          map[string]uint64
	acnts         map[uint64]*Account
	modifiedAcnts map[uint64]uint32

	// pending holds records written in this block. A nil value is a removal.
	pending map[string][]byte
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		header:        new(StateHeader),
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		pending:       make(map[string][]byte),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		pending:       make(map[string][]byte),
	}
	n.header = s.header.Clone()
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		switch x := any(v).(type) {
		case *Account:
			res[k] = any(x.Clone()).(V)
		case []byte:
			res[k] = any(cloneBytes(x)).(V)
		default:
			res[k] = v
		}
	}
	return res
}

// Clone returns an independent copy of the block view. Transactions run
// against a clone that is adopted only when they succeed.
func (s *State) Clone() *State {
	return &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		header:        s.header.Clone(),
		idxs:          deepCopyMap(s.idxs),
		acnts:         deepCopyMap(s.acnts),
		modifiedAcnts: deepCopyMap(s.modifiedAcnts),
		pending:       deepCopyMap(s.pending),
	}
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = s.header.Unmarshal(val)
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
		s.header.RootHash = cloneBytes(rootHash)
		s.header.Hash = cloneBytes(h[:])
	}
	return
}

// Update writes the block's changes to the working tree in key order and
// returns the resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	_, err = s.db.Set([]byte(KeyState), s.header.Marshal())
	if err != nil {
		return
	}

	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := s.pending[k]
		if val == nil {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), val)
		}
		if err != nil {
			return
		}
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, 0, n)
		for idx := range s.modifiedAcnts {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			_, err = s.db.Set([]byte(key), acnt.Marshal())
			if err != nil {
				return
			}
			if flag&ModifiedFlagNew == ModifiedFlagNew {
				var val []byte
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	s.pending = make(map[string][]byte)
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

func (s *State) get(key string) ([]byte, error) {
	if val, ok := s.pending[key]; ok {
		return val, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) set(key string, val []byte) {
	s.pending[key] = val
}

func (s *State) remove(key string) {
	s.pending[key] = nil
}

func (s *State) getRLP(key string, v any) (found bool, err error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return false, err
	}
	return true, rlp.DecodeBytes(val, v)
}

func (s *State) setRLP(key string, v any) error {
	val, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	s.set(key, val)
	return nil
}

func (s *State) getJSON(key string, v any) (found bool, err error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return false, err
	}
	return true, json.Unmarshal(val, v)
}

func (s *State) setJSON(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, val)
	return nil
}

// iterate visits every record under prefix in key order, including the
// writes of this block.
func (s *State) iterate(prefix string, fn func(key string, val []byte) error) (err error) {
	start := []byte(prefix)
	it, err := s.db.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return err
	}
	merged := make(map[string][]byte)
	for ; it.Valid(); it.Next() {
		merged[string(it.Key())] = cloneBytes(it.Value())
	}
	if err = it.Error(); err != nil {
		it.Close()
		return err
	}
	if err = it.Close(); err != nil {
		return err
	}
	for k, v := range s.pending {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err = fn(k, merged[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Account)
	err = acnt.Unmarshal(val)
	if err != nil {
		return nil, err
	}
	s.acnts[idx] = acnt
	return
}

func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	return s.FindAccountByID(types.AccountID(cmtcrypto.Address(addr).String()))
}

func (s *State) FindAccountByID(id types.AccountID) (acnt *Account, err error) {
	saddr := string(id)
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)
	return
}

func (s *State) AddAccount(acnt *Account) (err error) {
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.acnts[acnt.Index] = acnt.Clone()
	s.idxs[acnt.Address()] = acnt.Index
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

// IncreaseNonce bumps the nonce of the key's account, creating the account
// on first use.
func (s *State) IncreaseNonce(pubkey []byte) (acnt *Account, err error) {
	if len(pubkey) != ed25519.PubKeySize {
		return nil, ErrTxPubKeyInvalid
	}
	acnt, err = s.FindAccount(ed25519.PubKey(pubkey).Address())
	if err != nil {
		return nil, err
	}
	if acnt == nil {
		acnt = &Account{}
		acnt.SetPubKey(pubkey)
		err = s.AddAccount(acnt)
		if err != nil {
			return nil, err
		}
	}
	acnt = acnt.Clone()
	acnt.Nonce += 1
	s.modifiedAcnts[acnt.Index] |= ModifiedFlagMod
	s.acnts[acnt.Index] = acnt
	return acnt.Clone(), nil
}

// Verify checks the envelope signature and nonce. An unknown key is accepted
// with nonce 0.
func (s *State) Verify(btx *tx.GovTx, allowNonceGap bool) (succ bool, err error) {
	if len(btx.PubKey) != ed25519.PubKeySize {
		return false, ErrTxPubKeyInvalid
	}
	pk := ed25519.PubKey(btx.PubKey)
	a, err := s.FindAccount(pk.Address())
	if err != nil {
		return false, err
	}
	var nonce uint64
	if a != nil {
		nonce = a.Nonce
	}
	if !(nonce == btx.Nonce || (allowNonceGap && nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	succ = len(btx.Sig) == 1 && pk.VerifySignature(dat, btx.Sig[0])
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

func (s *State) SetCouncil(id types.AccountID) error {
	addr, err := hex.DecodeString(string(id))
	if err != nil || len(addr) != cmtcrypto.AddressSize {
		return fmt.Errorf("invalid council address %q", string(id))
	}
	s.set(fmt.Sprintf(KeyCouncil, cmtcrypto.Address(addr).String()), []byte{1})
	return nil
}

func (s *State) IsCouncil(id types.AccountID) (bool, error) {
	val, err := s.get(fmt.Sprintf(KeyCouncil, strings.ToUpper(string(id))))
	return val != nil, err
}

func (s *State) Council() (council []types.AccountID, err error) {
	prefix := fmt.Sprintf(KeyCouncil, "")
	err = s.iterate(prefix, func(key string, _ []byte) error {
		council = append(council, types.AccountID(strings.TrimPrefix(key, prefix)))
		return nil
	})
	return
}

func (s *State) SetParams(params types.GovernanceParams) error {
	return s.setJSON(KeyParams, params)
}

func (s *State) Params() (params types.GovernanceParams, err error) {
	found, err := s.getJSON(KeyParams, &params)
	if err == nil && !found {
		err = fmt.Errorf("governance params: %w", ErrNotFound)
	}
	return
}

func (s *State) ValidatorAccounts() (acounts []*Account, height uint64, err error) {
	err = s.iterate("a", func(_ string, val []byte) error {
		var act Account
		if err := act.Unmarshal(val); err != nil {
			return err
		}
		if act.Power > 0 {
			acounts = append(acounts, &act)
		}
		return nil
	})
	height = s.header.Height
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

// SetHeight pins the view to the height being executed.
func (s *State) SetHeight(height uint64) {
	s.header.Height = height
}

func (s *State) BlockNumber() types.BlockNumber {
	return s.header.Height
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
