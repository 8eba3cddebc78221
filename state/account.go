package state

import (
	"encoding/json"

	"github.com/calehh/democracy-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is created the first time a key signs a valid transaction, or at
// genesis for validators.
type Account struct {
	Index  uint64
	PubKey []byte
	Nonce  uint64
	// Power is the genesis voting power of validator accounts.
	Power int64
}

type accountSt struct {
	Index   uint64         `json:"index"`
	Address string         `json:"address"`
	PubKey  ed25519.PubKey `json:"pubKey"`
	Nonce   uint64         `json:"nonce"`
	Power   int64          `json:"power"`
	Council bool           `json:"council"`
}

func (a *Account) MarshalJSON() (dat []byte, err error) {
	o := accountSt{
		Index:   a.Index,
		Address: a.Address(),
		PubKey:  a.PubKey,
		Nonce:   a.Nonce,
		Power:   a.Power,
	}
	return json.Marshal(o)
}

func (a *Account) UnmarshalJSON(dat []byte) (err error) {
	var o accountSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	a.Index = o.Index
	a.PubKey = o.PubKey
	a.Nonce = o.Nonce
	a.Power = o.Power
	return
}

func (a *Account) Clone() *Account {
	n := *a
	n.PubKey = cloneBytes(a.PubKey)
	return &n
}

func (a *Account) SetPubKey(pkey []byte) {
	a.PubKey = cloneBytes(pkey)
}

func (a *Account) AddrBytes() []byte {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address()[:]
}

func (a *Account) Address() string {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address().String()
}

func (a *Account) ID() types.AccountID {
	return types.AccountID(a.Address())
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}

// AccountIDFromPubKey returns the account id an ed25519 key signs for.
func AccountIDFromPubKey(pk []byte) types.AccountID {
	return types.AccountID(ed25519.PubKey(pk).Address().String())
}

func AccountIDFromAddress(addr []byte) types.AccountID {
	return types.AccountID(cmtcrypto.Address(addr).String())
}
