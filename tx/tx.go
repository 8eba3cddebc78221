package tx

import (
	"encoding/json"

	"github.com/calehh/democracy-app/types"
)

// GovTx is the signed envelope of every transaction. The signer is identified
// by PubKey; its account is created on first use.
type GovTx struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	PubKey  []byte    `json:"pubkey"`
	Tx      any       `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

type SubmitProposalTx struct {
	Action types.ProposalAction `json:"-"`
}

type submitProposalSt struct {
	Action json.RawMessage `json:"action"`
}

func (t SubmitProposalTx) MarshalJSON() ([]byte, error) {
	action, err := types.MarshalAction(t.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(submitProposalSt{Action: action})
}

func (t *SubmitProposalTx) UnmarshalJSON(dat []byte) (err error) {
	var o submitProposalSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	t.Action, err = types.UnmarshalAction(o.Action)
	return
}

type VoteTx struct {
	Proposal    types.ProposalID         `json:"proposal"`
	Vote        types.Vote               `json:"vote"`
	Reputations []types.ReputationHandle `json:"reputations"`
}

type UpdateProposalStateTx struct {
	Proposal types.ProposalID `json:"proposal"`
}

type CancelProposalsTx struct {
	Identifier types.ProposalActionIdentifier `json:"identifier"`
}

type RegisterCommunityTx struct {
	Geohash       string `json:"geohash"`
	Name          string `json:"name"`
	NominalIncome uint64 `json:"nominalIncome"`
	Demurrage     uint64 `json:"demurrage"`
}

type RemoveCommunityTx struct {
	Community types.CommunityID `json:"community"`
}

type ReputationEntry struct {
	Account    types.AccountID  `json:"account"`
	Reputation types.Reputation `json:"reputation"`
}

type RecordReputationsTx struct {
	Community types.CommunityID   `json:"community"`
	Cycle     types.CeremonyIndex `json:"cycle"`
	Entries   []ReputationEntry   `json:"entries"`
}

type govTxTmpl[Tx any] struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	PubKey  []byte    `json:"pubkey"`
	Tx      Tx        `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

// SigData is the byte string signed by the sender: the envelope with the
// chain id in place of the signatures.
func (tx *GovTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseGovTxType(dat []byte) GovTxType {
	var tx struct {
		Type GovTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GovTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGovTx[Tx any](dat []byte) (btx *GovTx, err error) {
	var txt govTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version > GovTxVersion1 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(GovTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.PubKey = txt.PubKey
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGovTx(dat []byte) (btx *GovTx, err error) {
	tp := parseGovTxType(dat)
	switch tp {
	case GovTxTypeSubmitProposal:
		return unmarshalGovTx[SubmitProposalTx](dat)
	case GovTxTypeVote:
		return unmarshalGovTx[VoteTx](dat)
	case GovTxTypeUpdateProposalState:
		return unmarshalGovTx[UpdateProposalStateTx](dat)
	case GovTxTypeCancelProposals:
		return unmarshalGovTx[CancelProposalsTx](dat)
	case GovTxTypeRegisterCommunity:
		return unmarshalGovTx[RegisterCommunityTx](dat)
	case GovTxTypeRemoveCommunity:
		return unmarshalGovTx[RemoveCommunityTx](dat)
	case GovTxTypeRecordReputations:
		return unmarshalGovTx[RecordReputationsTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalGovTx(btx *GovTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
