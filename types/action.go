package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

type ActionKind uint8

const (
	ActionUnknown              ActionKind = 0
	ActionUpdateNominalIncome  ActionKind = 1
	ActionUpdateDemurrage      ActionKind = 2
	ActionSetInactivityTimeout ActionKind = 3
)

func (k ActionKind) String() string {
	switch k {
	case ActionUpdateNominalIncome:
		return "update_nominal_income"
	case ActionUpdateDemurrage:
		return "update_demurrage"
	case ActionSetInactivityTimeout:
		return "set_inactivity_timeout"
	}
	return fmt.Sprintf("action(%d)", uint8(k))
}

func ParseActionKind(s string) (ActionKind, error) {
	for _, k := range []ActionKind{ActionUpdateNominalIncome, ActionUpdateDemurrage, ActionSetInactivityTimeout} {
		if k.String() == s {
			return k, nil
		}
	}
	return ActionUnknown, fmt.Errorf("unknown action kind %q", s)
}

// CommunityScoped reports whether actions of this kind target a single community.
func (k ActionKind) CommunityScoped() bool {
	return k == ActionUpdateNominalIncome || k == ActionUpdateDemurrage
}

// ProposalActionIdentifier is the class of an action: its kind and, for
// community scoped kinds, the target community. It never carries the value
// being set.
type ProposalActionIdentifier struct {
	Kind      ActionKind  `json:"kind"`
	Community CommunityID `json:"community,omitempty"`
}

func (id ProposalActionIdentifier) String() string {
	if id.Community == "" {
		return id.Kind.String()
	}
	return id.Kind.String() + "/" + string(id.Community)
}

func (id ProposalActionIdentifier) Validate() error {
	switch {
	case id.Kind == ActionUnknown || id.Kind > ActionSetInactivityTimeout:
		return ErrUnknownAction
	case id.Kind.CommunityScoped():
		return id.Community.Validate()
	case id.Community != "":
		return fmt.Errorf("%v is not community scoped", id.Kind)
	}
	return nil
}

var (
	ErrUnknownAction = errors.New("unknown proposal action")
	ErrZeroTimeout   = errors.New("inactivity timeout is zero")
)

// ProposalAction is the closed set of changes a proposal can enact.
type ProposalAction interface {
	Kind() ActionKind
	Identifier() ProposalActionIdentifier
	// Scope returns the target community of a community scoped action.
	Scope() (CommunityID, bool)
	Validate() error

	isProposalAction()
}

var (
	_ ProposalAction = (*UpdateNominalIncome)(nil)
	_ ProposalAction = (*UpdateDemurrage)(nil)
	_ ProposalAction = (*SetInactivityTimeout)(nil)
)

type UpdateNominalIncome struct {
	Community CommunityID `json:"community"`
	Income    uint64      `json:"income"`
}

func (*UpdateNominalIncome) Kind() ActionKind { return ActionUpdateNominalIncome }

func (a *UpdateNominalIncome) Identifier() ProposalActionIdentifier {
	return ProposalActionIdentifier{Kind: ActionUpdateNominalIncome, Community: a.Community}
}

func (a *UpdateNominalIncome) Scope() (CommunityID, bool) { return a.Community, true }

func (a *UpdateNominalIncome) Validate() error { return a.Community.Validate() }

func (*UpdateNominalIncome) isProposalAction() {}

type UpdateDemurrage struct {
	Community CommunityID `json:"community"`
	// Demurrage per block in parts per billion.
	Demurrage uint64 `json:"demurrage"`
}

func (*UpdateDemurrage) Kind() ActionKind { return ActionUpdateDemurrage }

func (a *UpdateDemurrage) Identifier() ProposalActionIdentifier {
	return ProposalActionIdentifier{Kind: ActionUpdateDemurrage, Community: a.Community}
}

func (a *UpdateDemurrage) Scope() (CommunityID, bool) { return a.Community, true }

func (a *UpdateDemurrage) Validate() error { return a.Community.Validate() }

func (*UpdateDemurrage) isProposalAction() {}

type SetInactivityTimeout struct {
	Timeout uint32 `json:"timeout"`
}

func (*SetInactivityTimeout) Kind() ActionKind { return ActionSetInactivityTimeout }

func (*SetInactivityTimeout) Identifier() ProposalActionIdentifier {
	return ProposalActionIdentifier{Kind: ActionSetInactivityTimeout}
}

func (*SetInactivityTimeout) Scope() (CommunityID, bool) { return "", false }

func (a *SetInactivityTimeout) Validate() error {
	if a.Timeout == 0 {
		return ErrZeroTimeout
	}
	return nil
}

func (*SetInactivityTimeout) isProposalAction() {}

type actionTmpl[A any] struct {
	Kind   ActionKind `json:"kind"`
	Action A          `json:"action"`
}

func MarshalAction(a ProposalAction) ([]byte, error) {
	if a == nil {
		return nil, ErrUnknownAction
	}
	return json.Marshal(actionTmpl[ProposalAction]{Kind: a.Kind(), Action: a})
}

func unmarshalAction[A any, P interface {
	*A
	ProposalAction
}](dat []byte) (ProposalAction, error) {
	var o actionTmpl[A]
	if err := json.Unmarshal(dat, &o); err != nil {
		return nil, err
	}
	return P(&o.Action), nil
}

func UnmarshalAction(dat []byte) (ProposalAction, error) {
	var head struct {
		Kind ActionKind `json:"kind"`
	}
	if err := json.Unmarshal(dat, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case ActionUpdateNominalIncome:
		return unmarshalAction[UpdateNominalIncome](dat)
	case ActionUpdateDemurrage:
		return unmarshalAction[UpdateDemurrage](dat)
	case ActionSetInactivityTimeout:
		return unmarshalAction[SetInactivityTimeout](dat)
	}
	return nil, ErrUnknownAction
}

// NewCommunityID derives a community id from its geohash and name.
func NewCommunityID(geohash string, name string) (CommunityID, error) {
	if len(geohash) < CommunityGeohashLen {
		return "", fmt.Errorf("geohash %q shorter than %d", geohash, CommunityGeohashLen)
	}
	digest := crypto.Keccak256([]byte(name))
	id := CommunityID(geohash[:CommunityGeohashLen] + hex.EncodeToString(digest[:CommunityDigestLen/2]))
	return id, id.Validate()
}
