package state

import (
	"fmt"

	"github.com/calehh/democracy-app/types"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyProposalCount = "N"
	KeyProposalBody  = "P%016x"
	KeyTally         = "T%016x"
	KeyVoteEntry     = "V%016x/%s/%s/%08x"
	KeyEnactment     = "Q%s"
	KeyCancelledAt   = "C%s"
)

// identifierKey orders queue entries by kind, then community.
func identifierKey(id types.ProposalActionIdentifier) string {
	return fmt.Sprintf("%02x%s", uint8(id.Kind), id.Community)
}

type tallySt struct {
	Turnout uint64
	Ayes    uint64
}

type enactmentSt struct {
	Kind      uint8
	Community string
	Proposal  uint64
}

func (s *State) ProposalCount() (count uint64, err error) {
	_, err = s.getRLP(KeyProposalCount, &count)
	return
}

func (s *State) SetProposalCount(count uint64) error {
	return s.setRLP(KeyProposalCount, count)
}

// Proposal returns nil when id was never allocated.
func (s *State) Proposal(id types.ProposalID) (*types.Proposal, error) {
	p := new(types.Proposal)
	found, err := s.getJSON(fmt.Sprintf(KeyProposalBody, id), p)
	if err != nil || !found {
		return nil, err
	}
	return p, nil
}

func (s *State) SetProposal(id types.ProposalID, p *types.Proposal) error {
	return s.setJSON(fmt.Sprintf(KeyProposalBody, id), p)
}

func (s *State) Tally(id types.ProposalID) (tally types.Tally, found bool, err error) {
	var o tallySt
	found, err = s.getRLP(fmt.Sprintf(KeyTally, id), &o)
	tally = types.Tally{Turnout: o.Turnout, Ayes: o.Ayes}
	return
}

func (s *State) SetTally(id types.ProposalID, tally types.Tally) error {
	return s.setRLP(fmt.Sprintf(KeyTally, id), tallySt{Turnout: tally.Turnout, Ayes: tally.Ayes})
}

func voteEntryKey(id types.ProposalID, account types.AccountID, h types.ReputationHandle) string {
	return fmt.Sprintf(KeyVoteEntry, id, account, h.Community, h.Cycle)
}

func (s *State) HasVoteEntry(id types.ProposalID, account types.AccountID, h types.ReputationHandle) (bool, error) {
	val, err := s.get(voteEntryKey(id, account, h))
	return val != nil, err
}

func (s *State) AddVoteEntry(id types.ProposalID, account types.AccountID, h types.ReputationHandle) error {
	s.set(voteEntryKey(id, account, h), []byte{1})
	return nil
}

func (s *State) EnactmentEntry(identifier types.ProposalActionIdentifier) (id types.ProposalID, found bool, err error) {
	var o enactmentSt
	found, err = s.getRLP(fmt.Sprintf(KeyEnactment, identifierKey(identifier)), &o)
	id = o.Proposal
	return
}

func (s *State) SetEnactmentEntry(identifier types.ProposalActionIdentifier, id types.ProposalID) error {
	return s.setRLP(fmt.Sprintf(KeyEnactment, identifierKey(identifier)), enactmentSt{
		Kind:      uint8(identifier.Kind),
		Community: string(identifier.Community),
		Proposal:  id,
	})
}

func (s *State) RemoveEnactmentEntry(identifier types.ProposalActionIdentifier) error {
	s.remove(fmt.Sprintf(KeyEnactment, identifierKey(identifier)))
	return nil
}

// EnactmentQueue lists the live queue entries ordered by identifier.
func (s *State) EnactmentQueue() (entries []types.EnactmentEntry, err error) {
	err = s.iterate(fmt.Sprintf(KeyEnactment, ""), func(_ string, val []byte) error {
		var o enactmentSt
		if err := rlp.DecodeBytes(val, &o); err != nil {
			return err
		}
		entries = append(entries, types.EnactmentEntry{
			Identifier: types.ProposalActionIdentifier{
				Kind:      types.ActionKind(o.Kind),
				Community: types.CommunityID(o.Community),
			},
			Proposal: o.Proposal,
		})
		return nil
	})
	return
}

func (s *State) CancelledAt(identifier types.ProposalActionIdentifier) (block types.BlockNumber, found bool, err error) {
	found, err = s.getRLP(fmt.Sprintf(KeyCancelledAt, identifierKey(identifier)), &block)
	return
}

func (s *State) SetCancelledAt(identifier types.ProposalActionIdentifier, block types.BlockNumber) error {
	return s.setRLP(fmt.Sprintf(KeyCancelledAt, identifierKey(identifier)), block)
}
