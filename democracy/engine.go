// Package democracy implements reputation weighted proposals: submission,
// eligibility of reputations, tallying against an adaptive quorum curve, the
// proposal lifecycle and the enactment queue.
//
// The engine keeps no state of its own. Every operation reads and writes
// through the Chain passed in, so the caller decides what gets committed.
package democracy

import (
	"errors"

	"github.com/calehh/democracy-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

var (
	ErrProposalWaitingForEnactment = errors.New("proposal waiting for enactment")
	ErrInexistentProposal          = errors.New("inexistent proposal")
	ErrProposalCannotBeUpdated     = errors.New("proposal cannot be updated")
	ErrTooManyReputations          = errors.New("too many reputations")
	ErrProposalCannotBeVoted       = errors.New("proposal cannot be voted")
	ErrInvalidAction               = errors.New("invalid action")
	ErrInvalidVote                 = errors.New("invalid vote")
	// ErrTallyInvariant means stored tallies are corrupt. Block execution
	// must stop.
	ErrTallyInvariant = errors.New("tally invariant violated")
)

type Params = types.GovernanceParams

// Store persists proposals and their bookkeeping.
type Store interface {
	BlockNumber() types.BlockNumber
	CurrentCeremonyIndex() (types.CeremonyIndex, error)

	ProposalCount() (uint64, error)
	SetProposalCount(count uint64) error
	Proposal(id types.ProposalID) (*types.Proposal, error)
	SetProposal(id types.ProposalID, p *types.Proposal) error

	Tally(id types.ProposalID) (types.Tally, bool, error)
	SetTally(id types.ProposalID, tally types.Tally) error

	HasVoteEntry(id types.ProposalID, account types.AccountID, h types.ReputationHandle) (bool, error)
	AddVoteEntry(id types.ProposalID, account types.AccountID, h types.ReputationHandle) error

	EnactmentEntry(identifier types.ProposalActionIdentifier) (types.ProposalID, bool, error)
	SetEnactmentEntry(identifier types.ProposalActionIdentifier, id types.ProposalID) error
	RemoveEnactmentEntry(identifier types.ProposalActionIdentifier) error
	EnactmentQueue() ([]types.EnactmentEntry, error)

	CancelledAt(identifier types.ProposalActionIdentifier) (types.BlockNumber, bool, error)
	SetCancelledAt(identifier types.ProposalActionIdentifier, block types.BlockNumber) error
}

// ReputationRegistry answers who attended which ceremony.
type ReputationRegistry interface {
	Reputation(cid types.CommunityID, cycle types.CeremonyIndex, account types.AccountID) (types.Reputation, error)
	VerifiedCount(cid types.CommunityID, cycle types.CeremonyIndex) (uint64, error)
	// KnownCommunities lists every community that ever held reputation.
	KnownCommunities() ([]types.CommunityID, error)
	HasCommunity(cid types.CommunityID) (bool, error)
}

// Enactor applies approved actions.
type Enactor interface {
	SetNominalIncome(cid types.CommunityID, income uint64) error
	SetDemurrage(cid types.CommunityID, demurrage uint64) error
	SetInactivityTimeout(timeout uint32) error
}

type Chain interface {
	Store
	ReputationRegistry
	Enactor
}

type Engine struct {
	params Params
	logger cmtlog.Logger
}

func NewEngine(params Params, logger cmtlog.Logger) *Engine {
	return &Engine{
		params: params,
		logger: logger.With("module", "democracy"),
	}
}

func (e *Engine) Params() Params {
	return e.params
}

// SetParams replaces the parameters once genesis has been applied. It must
// not be called while a block is executing.
func (e *Engine) SetParams(params Params) {
	e.params = params
}

// proposal loads id or fails with ErrInexistentProposal.
func (e *Engine) proposal(chain Chain, id types.ProposalID) (*types.Proposal, error) {
	p, err := chain.Proposal(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrInexistentProposal
	}
	return p, nil
}
