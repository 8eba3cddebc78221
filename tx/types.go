package tx

import (
	"errors"
)

type GovTxType uint8

const (
	GovTxTypeUnknown             GovTxType = 0
	GovTxTypeSubmitProposal      GovTxType = 1
	GovTxTypeVote                GovTxType = 2
	GovTxTypeUpdateProposalState GovTxType = 3
	GovTxTypeCancelProposals     GovTxType = 4
	GovTxTypeRegisterCommunity   GovTxType = 5
	GovTxTypeRemoveCommunity     GovTxType = 6
	GovTxTypeRecordReputations   GovTxType = 7
)

func (t GovTxType) String() string {
	switch t {
	case GovTxTypeSubmitProposal:
		return "submit_proposal"
	case GovTxTypeVote:
		return "vote"
	case GovTxTypeUpdateProposalState:
		return "update_proposal_state"
	case GovTxTypeCancelProposals:
		return "cancel_proposals"
	case GovTxTypeRegisterCommunity:
		return "register_community"
	case GovTxTypeRemoveCommunity:
		return "remove_community"
	case GovTxTypeRecordReputations:
		return "record_reputations"
	}
	return "unknown"
}

// Council reports whether only council members may send this tx type.
func (t GovTxType) Council() bool {
	return t >= GovTxTypeCancelProposals && t <= GovTxTypeRecordReputations
}

const (
	GovTxVersion0 uint8 = 0
	GovTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnmatchedTxType      = errors.New("unmatched tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
