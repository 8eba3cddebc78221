package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type (
	ProposalID    = uint64
	BlockNumber   = uint64
	CeremonyIndex = uint32
)

// AccountID is the upper-case hex address of an ed25519 public key.
type AccountID string

// CommunityID is a 5 character geohash followed by an 8 character hex digest.
type CommunityID string

const (
	CommunityGeohashLen = 5
	CommunityDigestLen  = 8
)

func (c CommunityID) Validate() error {
	if len(c) != CommunityGeohashLen+CommunityDigestLen {
		return fmt.Errorf("invalid community id %q", string(c))
	}
	for _, r := range c[:CommunityGeohashLen] {
		if !strings.ContainsRune(geohashAlphabet, r) {
			return fmt.Errorf("invalid community geohash %q", string(c))
		}
	}
	for _, r := range c[CommunityGeohashLen:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return fmt.Errorf("invalid community digest %q", string(c))
		}
	}
	return nil
}

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

type ReputationHandle struct {
	Community CommunityID   `json:"community"`
	Cycle     CeremonyIndex `json:"cycle"`
}

func (h ReputationHandle) String() string {
	return fmt.Sprintf("%s/%d", h.Community, h.Cycle)
}

type Reputation uint8

const (
	ReputationUnverified Reputation = iota
	ReputationUnverifiedReputable
	ReputationVerifiedUnlinked
	ReputationVerifiedLinked
)

func (r Reputation) IsVerified() bool {
	return r == ReputationVerifiedUnlinked || r == ReputationVerifiedLinked
}

func (r Reputation) String() string {
	switch r {
	case ReputationUnverified:
		return "unverified"
	case ReputationUnverifiedReputable:
		return "unverified_reputable"
	case ReputationVerifiedUnlinked:
		return "verified_unlinked"
	case ReputationVerifiedLinked:
		return "verified_linked"
	}
	return fmt.Sprintf("reputation(%d)", uint8(r))
}

type Vote uint8

const (
	VoteAye Vote = 1
	VoteNay Vote = 2
)

func (v Vote) String() string {
	switch v {
	case VoteAye:
		return "aye"
	case VoteNay:
		return "nay"
	}
	return fmt.Sprintf("vote(%d)", uint8(v))
}

func ParseVote(s string) (Vote, error) {
	switch strings.ToLower(s) {
	case "aye", "yes":
		return VoteAye, nil
	case "nay", "no":
		return VoteNay, nil
	}
	return 0, fmt.Errorf("invalid vote %q", s)
}

type StateKind uint8

const (
	ProposalOngoing StateKind = iota
	ProposalConfirming
	ProposalApproved
	ProposalCancelled
	ProposalEnacted
)

func (k StateKind) String() string {
	switch k {
	case ProposalOngoing:
		return "ongoing"
	case ProposalConfirming:
		return "confirming"
	case ProposalApproved:
		return "approved"
	case ProposalCancelled:
		return "cancelled"
	case ProposalEnacted:
		return "enacted"
	}
	return fmt.Sprintf("state(%d)", uint8(k))
}

// ProposalState is the lifecycle position of a proposal. Since is only
// meaningful for ProposalConfirming.
type ProposalState struct {
	Kind  StateKind   `json:"kind"`
	Since BlockNumber `json:"since,omitempty"`
}

func Ongoing() ProposalState                     { return ProposalState{Kind: ProposalOngoing} }
func Confirming(since BlockNumber) ProposalState { return ProposalState{Kind: ProposalConfirming, Since: since} }
func Approved() ProposalState                    { return ProposalState{Kind: ProposalApproved} }
func Cancelled() ProposalState                   { return ProposalState{Kind: ProposalCancelled} }
func Enacted() ProposalState                     { return ProposalState{Kind: ProposalEnacted} }

func (s ProposalState) IsTerminal() bool {
	return s.Kind == ProposalApproved || s.Kind == ProposalCancelled || s.Kind == ProposalEnacted
}

func (s ProposalState) String() string {
	if s.Kind == ProposalConfirming {
		return fmt.Sprintf("confirming(since=%d)", s.Since)
	}
	return s.Kind.String()
}

type Proposal struct {
	Start      BlockNumber    `json:"start"`
	StartCycle CeremonyIndex  `json:"start_cycle"`
	Action     ProposalAction `json:"-"`
	State      ProposalState  `json:"state"`
}

type proposalSt struct {
	Start      BlockNumber     `json:"start"`
	StartCycle CeremonyIndex   `json:"start_cycle"`
	Action     json.RawMessage `json:"action"`
	State      ProposalState   `json:"state"`
}

func (p Proposal) MarshalJSON() ([]byte, error) {
	action, err := MarshalAction(p.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(proposalSt{
		Start:      p.Start,
		StartCycle: p.StartCycle,
		Action:     action,
		State:      p.State,
	})
}

func (p *Proposal) UnmarshalJSON(dat []byte) (err error) {
	var o proposalSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	p.Action, err = UnmarshalAction(o.Action)
	if err != nil {
		return
	}
	p.Start = o.Start
	p.StartCycle = o.StartCycle
	p.State = o.State
	return
}

type Tally struct {
	Turnout uint64 `json:"turnout"`
	Ayes    uint64 `json:"ayes"`
}

// EnactmentEntry is one live slot of the enactment queue.
type EnactmentEntry struct {
	Identifier ProposalActionIdentifier `json:"identifier"`
	Proposal   ProposalID               `json:"proposal"`
}

type Community struct {
	ID            CommunityID `json:"id"`
	Name          string      `json:"name"`
	NominalIncome uint64      `json:"nominal_income"`
	// Demurrage is the per-block decay rate in parts per billion.
	Demurrage uint64 `json:"demurrage"`
}
