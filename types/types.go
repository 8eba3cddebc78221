package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventProposalSubmittedType    = "proposal_submitted"
	EventVotedType                = "vote_placed"
	EventProposalStateChangedType = "proposal_state_changed"
	EventProposalEnactedType      = "proposal_enacted"
	EventProposalsCancelledType   = "proposals_cancelled"
	EventPhaseChangedType         = "phase_changed"
	EventCommunityRegisteredType  = "community_registered"
	EventCommunityRemovedType     = "community_removed"
	EventReputationsRecordedType  = "reputations_recorded"
)

type CeremonyPhase uint8

const (
	PhaseRegistering CeremonyPhase = iota
	PhaseAssigning
	PhaseAttesting
)

func (p CeremonyPhase) String() string {
	switch p {
	case PhaseRegistering:
		return "registering"
	case PhaseAssigning:
		return "assigning"
	case PhaseAttesting:
		return "attesting"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Next returns the phase following p in the ceremony cycle.
func (p CeremonyPhase) Next() CeremonyPhase {
	return (p + 1) % 3
}

// SchedulerState is the persisted position of the ceremony phase scheduler.
type SchedulerState struct {
	Phase         CeremonyPhase `json:"phase"`
	CeremonyIndex CeremonyIndex `json:"ceremony_index"`
	PhaseStart    BlockNumber   `json:"phase_start"`
	PhaseBlocks   [3]uint64     `json:"phase_blocks"`
}

type EventProposalSubmitted struct {
	Proposal   ProposalID               `json:"proposal"`
	Proposer   AccountID                `json:"proposer"`
	Identifier ProposalActionIdentifier `json:"identifier"`
	Start      BlockNumber              `json:"start"`
	StartCycle CeremonyIndex            `json:"startCycle"`
	Action     []byte                   `json:"action"`
}

func EncodeEventProposalSubmitted(event *EventProposalSubmitted) abci.Event {
	return abci.Event{
		Type: EventProposalSubmittedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "proposer", Value: string(event.Proposer), Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Identifier.Kind)), Index: true},
			{Key: "community", Value: string(event.Identifier.Community), Index: true},
			{Key: "start", Value: fmt.Sprintf("%v", event.Start), Index: false},
			{Key: "startCycle", Value: fmt.Sprintf("%v", event.StartCycle), Index: false},
			{Key: "action", Value: string(event.Action), Index: false},
		},
	}
}

func DecodeEventProposalSubmitted(originEvent abci.Event) *EventProposalSubmitted {
	event := &EventProposalSubmitted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "proposer":
			event.Proposer = AccountID(v.Value)
		case "kind":
			kind, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Identifier.Kind = ActionKind(kind)
		case "community":
			event.Identifier.Community = CommunityID(v.Value)
		case "start":
			start, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Start = start
		case "startCycle":
			cycle, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.StartCycle = CeremonyIndex(cycle)
		case "action":
			event.Action = []byte(v.Value)
		}
	}
	return event
}

type EventVoted struct {
	Proposal ProposalID `json:"proposal"`
	Voter    AccountID  `json:"voter"`
	Vote     Vote       `json:"vote"`
	// Spent is the number of reputations that counted.
	Spent   uint64 `json:"spent"`
	Turnout uint64 `json:"turnout"`
	Ayes    uint64 `json:"ayes"`
}

func EncodeEventVoted(event *EventVoted) abci.Event {
	return abci.Event{
		Type: EventVotedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "voter", Value: string(event.Voter), Index: true},
			{Key: "vote", Value: fmt.Sprintf("%v", uint8(event.Vote)), Index: false},
			{Key: "spent", Value: fmt.Sprintf("%v", event.Spent), Index: false},
			{Key: "turnout", Value: fmt.Sprintf("%v", event.Turnout), Index: false},
			{Key: "ayes", Value: fmt.Sprintf("%v", event.Ayes), Index: false},
		},
	}
}

func DecodeEventVoted(originEvent abci.Event) *EventVoted {
	event := &EventVoted{}
	for _, v := range originEvent.Attributes {
		var err error
		switch v.Key {
		case "proposal":
			event.Proposal, err = strconv.ParseUint(v.Value, 10, 64)
		case "voter":
			event.Voter = AccountID(v.Value)
		case "vote":
			var vote uint64
			vote, err = strconv.ParseUint(v.Value, 10, 8)
			event.Vote = Vote(vote)
		case "spent":
			event.Spent, err = strconv.ParseUint(v.Value, 10, 64)
		case "turnout":
			event.Turnout, err = strconv.ParseUint(v.Value, 10, 64)
		case "ayes":
			event.Ayes, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventProposalStateChanged struct {
	Proposal ProposalID    `json:"proposal"`
	From     ProposalState `json:"from"`
	To       ProposalState `json:"to"`
	Height   BlockNumber   `json:"height"`
}

func EncodeEventProposalStateChanged(event *EventProposalStateChanged) abci.Event {
	return abci.Event{
		Type: EventProposalStateChangedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "from", Value: fmt.Sprintf("%v", uint8(event.From.Kind)), Index: false},
			{Key: "fromSince", Value: fmt.Sprintf("%v", event.From.Since), Index: false},
			{Key: "to", Value: fmt.Sprintf("%v", uint8(event.To.Kind)), Index: true},
			{Key: "toSince", Value: fmt.Sprintf("%v", event.To.Since), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventProposalStateChanged(originEvent abci.Event) *EventProposalStateChanged {
	event := &EventProposalStateChanged{}
	for _, v := range originEvent.Attributes {
		var (
			n   uint64
			err error
		)
		switch v.Key {
		case "proposal":
			event.Proposal, err = strconv.ParseUint(v.Value, 10, 64)
		case "from":
			n, err = strconv.ParseUint(v.Value, 10, 8)
			event.From.Kind = StateKind(n)
		case "fromSince":
			event.From.Since, err = strconv.ParseUint(v.Value, 10, 64)
		case "to":
			n, err = strconv.ParseUint(v.Value, 10, 8)
			event.To.Kind = StateKind(n)
		case "toSince":
			event.To.Since, err = strconv.ParseUint(v.Value, 10, 64)
		case "height":
			event.Height, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventProposalEnacted struct {
	Proposal   ProposalID               `json:"proposal"`
	Identifier ProposalActionIdentifier `json:"identifier"`
	Height     BlockNumber              `json:"height"`
}

func EncodeEventProposalEnacted(event *EventProposalEnacted) abci.Event {
	return abci.Event{
		Type: EventProposalEnactedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Identifier.Kind)), Index: true},
			{Key: "community", Value: string(event.Identifier.Community), Index: true},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventProposalEnacted(originEvent abci.Event) *EventProposalEnacted {
	event := &EventProposalEnacted{}
	for _, v := range originEvent.Attributes {
		var (
			n   uint64
			err error
		)
		switch v.Key {
		case "proposal":
			event.Proposal, err = strconv.ParseUint(v.Value, 10, 64)
		case "kind":
			n, err = strconv.ParseUint(v.Value, 10, 8)
			event.Identifier.Kind = ActionKind(n)
		case "community":
			event.Identifier.Community = CommunityID(v.Value)
		case "height":
			event.Height, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventProposalsCancelled struct {
	Identifier ProposalActionIdentifier `json:"identifier"`
	Height     BlockNumber              `json:"height"`
}

func EncodeEventProposalsCancelled(event *EventProposalsCancelled) abci.Event {
	return abci.Event{
		Type: EventProposalsCancelledType,
		Attributes: []abci.EventAttribute{
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Identifier.Kind)), Index: true},
			{Key: "community", Value: string(event.Identifier.Community), Index: true},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventProposalsCancelled(originEvent abci.Event) *EventProposalsCancelled {
	event := &EventProposalsCancelled{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "kind":
			kind, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Identifier.Kind = ActionKind(kind)
		case "community":
			event.Identifier.Community = CommunityID(v.Value)
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventPhaseChanged struct {
	Phase         CeremonyPhase `json:"phase"`
	CeremonyIndex CeremonyIndex `json:"ceremonyIndex"`
	Height        BlockNumber   `json:"height"`
}

func EncodeEventPhaseChanged(event *EventPhaseChanged) abci.Event {
	return abci.Event{
		Type: EventPhaseChangedType,
		Attributes: []abci.EventAttribute{
			{Key: "phase", Value: fmt.Sprintf("%v", uint8(event.Phase)), Index: true},
			{Key: "cindex", Value: fmt.Sprintf("%v", event.CeremonyIndex), Index: true},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventPhaseChanged(originEvent abci.Event) *EventPhaseChanged {
	event := &EventPhaseChanged{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "phase":
			phase, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Phase = CeremonyPhase(phase)
		case "cindex":
			cindex, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.CeremonyIndex = CeremonyIndex(cindex)
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventCommunityRegistered struct {
	Community CommunityID `json:"community"`
	Name      string      `json:"name"`
}

func EncodeEventCommunityRegistered(event *EventCommunityRegistered) abci.Event {
	return abci.Event{
		Type: EventCommunityRegisteredType,
		Attributes: []abci.EventAttribute{
			{Key: "community", Value: string(event.Community), Index: true},
			{Key: "name", Value: event.Name, Index: false},
		},
	}
}

func DecodeEventCommunityRegistered(originEvent abci.Event) *EventCommunityRegistered {
	event := &EventCommunityRegistered{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "community":
			event.Community = CommunityID(v.Value)
		case "name":
			event.Name = v.Value
		}
	}
	return event
}

type EventCommunityRemoved struct {
	Community CommunityID `json:"community"`
}

func EncodeEventCommunityRemoved(event *EventCommunityRemoved) abci.Event {
	return abci.Event{
		Type: EventCommunityRemovedType,
		Attributes: []abci.EventAttribute{
			{Key: "community", Value: string(event.Community), Index: true},
		},
	}
}

func DecodeEventCommunityRemoved(originEvent abci.Event) *EventCommunityRemoved {
	event := &EventCommunityRemoved{}
	for _, v := range originEvent.Attributes {
		if v.Key == "community" {
			event.Community = CommunityID(v.Value)
		}
	}
	return event
}

type EventReputationsRecorded struct {
	Community CommunityID   `json:"community"`
	Cycle     CeremonyIndex `json:"cycle"`
	Entries   uint64        `json:"entries"`
	// Verified is the verified count of (Community, Cycle) after the write.
	Verified uint64 `json:"verified"`
}

func EncodeEventReputationsRecorded(event *EventReputationsRecorded) abci.Event {
	return abci.Event{
		Type: EventReputationsRecordedType,
		Attributes: []abci.EventAttribute{
			{Key: "community", Value: string(event.Community), Index: true},
			{Key: "cycle", Value: fmt.Sprintf("%v", event.Cycle), Index: true},
			{Key: "entries", Value: fmt.Sprintf("%v", event.Entries), Index: false},
			{Key: "verified", Value: fmt.Sprintf("%v", event.Verified), Index: false},
		},
	}
}

func DecodeEventReputationsRecorded(originEvent abci.Event) *EventReputationsRecorded {
	event := &EventReputationsRecorded{}
	for _, v := range originEvent.Attributes {
		var (
			n   uint64
			err error
		)
		switch v.Key {
		case "community":
			event.Community = CommunityID(v.Value)
		case "cycle":
			n, err = strconv.ParseUint(v.Value, 10, 32)
			event.Cycle = CeremonyIndex(n)
		case "entries":
			event.Entries, err = strconv.ParseUint(v.Value, 10, 64)
		case "verified":
			event.Verified, err = strconv.ParseUint(v.Value, 10, 64)
		}
		if err != nil {
			return nil
		}
	}
	return event
}
