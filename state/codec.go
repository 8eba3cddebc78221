package state

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// StateHeader is persisted under KeyState at every block.
type StateHeader struct {
	Height     uint64
	ChainId    string
	AccountIdx uint64
	RootHash   []byte
	Hash       []byte
}

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = cloneBytes(h.RootHash)
	n.Hash = cloneBytes(h.Hash)
	return &n
}

func (h *StateHeader) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, h.Height)
	if h.ChainId != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, h.ChainId)
	}
	b = appendVarintField(b, 3, h.AccountIdx)
	b = appendBytesField(b, 4, h.RootHash)
	b = appendBytesField(b, 5, h.Hash)
	return b
}

func (h *StateHeader) Unmarshal(b []byte) error {
	*h = StateHeader{}
	return consumeFields(b, func(num protowire.Number, v uint64, bz []byte) {
		switch num {
		case 1:
			h.Height = v
		case 2:
			h.ChainId = string(bz)
		case 3:
			h.AccountIdx = v
		case 4:
			h.RootHash = cloneBytes(bz)
		case 5:
			h.Hash = cloneBytes(bz)
		}
	})
}

func (a *Account) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, a.Index)
	b = appendBytesField(b, 2, a.PubKey)
	b = appendVarintField(b, 3, a.Nonce)
	b = appendVarintField(b, 4, uint64(a.Power))
	return b
}

func (a *Account) Unmarshal(b []byte) error {
	*a = Account{}
	return consumeFields(b, func(num protowire.Number, v uint64, bz []byte) {
		switch num {
		case 1:
			a.Index = v
		case 2:
			a.PubKey = cloneBytes(bz)
		case 3:
			a.Nonce = v
		case 4:
			a.Power = int64(v)
		}
	})
}

var errWireType = errors.New("unexpected wire type")

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// consumeFields walks a message and reports varint and length delimited
// fields. Unknown fields of other wire types are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, v uint64, bz []byte)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, v, nil)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			fn(num, 0, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errWireType
			}
			b = b[n:]
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	n := make([]byte, len(b))
	copy(n, b)
	return n
}
