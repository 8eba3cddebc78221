package democracy

import (
	"errors"
	"fmt"

	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// enact runs the setter of a single action.
func enact(chain Chain, action types.ProposalAction) error {
	switch a := action.(type) {
	case *types.UpdateNominalIncome:
		return chain.SetNominalIncome(a.Community, a.Income)
	case *types.UpdateDemurrage:
		return chain.SetDemurrage(a.Community, a.Demurrage)
	case *types.SetInactivityTimeout:
		return chain.SetInactivityTimeout(a.Timeout)
	}
	return fmt.Errorf("%w: %T", types.ErrUnknownAction, action)
}

// Enact drains the enactment queue in identifier order. Every queued proposal
// becomes Enacted and its entry is removed. A proposal whose target community
// is gone is cancelled instead.
func (e *Engine) Enact(chain Chain) ([]abcitypes.Event, error) {
	entries, err := chain.EnactmentQueue()
	if err != nil {
		return nil, err
	}
	b := chain.BlockNumber()
	events := make([]abcitypes.Event, 0, len(entries))
	for _, entry := range entries {
		p, err := e.proposal(chain, entry.Proposal)
		if err != nil {
			return nil, fmt.Errorf("queued proposal %d: %w", entry.Proposal, err)
		}
		from := p.State
		err = enact(chain, p.Action)
		switch {
		case err == nil:
			p.State = types.Enacted()
			events = append(events, types.EncodeEventProposalEnacted(&types.EventProposalEnacted{
				Proposal:   entry.Proposal,
				Identifier: entry.Identifier,
				Height:     b,
			}))
			e.logger.Info("proposal enacted", "proposal", entry.Proposal, "identifier", entry.Identifier)
		case errors.Is(err, state.ErrCommunityNoexists):
			p.State = types.Cancelled()
			e.logger.Error("enactment target missing", "proposal", entry.Proposal, "identifier", entry.Identifier, "err", err)
		default:
			return nil, err
		}
		if err = chain.SetProposal(entry.Proposal, p); err != nil {
			return nil, err
		}
		if err = chain.RemoveEnactmentEntry(entry.Identifier); err != nil {
			return nil, err
		}
		events = append(events, types.EncodeEventProposalStateChanged(&types.EventProposalStateChanged{
			Proposal: entry.Proposal,
			From:     from,
			To:       p.State,
			Height:   b,
		}))
	}
	return events, nil
}

// OnPhaseChange is the scheduler hook. It updates every open proposal and,
// once a full ceremony cycle has passed, drains the enactment queue.
func (e *Engine) OnPhaseChange(chain Chain, phase types.CeremonyPhase) ([]abcitypes.Event, error) {
	count, err := chain.ProposalCount()
	if err != nil {
		return nil, err
	}
	var events []abcitypes.Event
	for id := types.ProposalID(1); id <= count; id++ {
		p, err := e.proposal(chain, id)
		if err != nil {
			return nil, err
		}
		if p.State.IsTerminal() {
			continue
		}
		_, event, err := e.UpdateProposalState(chain, id)
		if err != nil {
			return nil, fmt.Errorf("update proposal %d: %w", id, err)
		}
		if event != nil {
			events = append(events, types.EncodeEventProposalStateChanged(event))
		}
	}
	if phase != types.PhaseRegistering {
		return events, nil
	}
	enacted, err := e.Enact(chain)
	if err != nil {
		return nil, err
	}
	return append(events, enacted...), nil
}

// CancelProposals cancels, on their next update, every Ongoing proposal of
// class identifier submitted at or before the current block.
func (e *Engine) CancelProposals(chain Chain, identifier types.ProposalActionIdentifier) (*types.EventProposalsCancelled, error) {
	if err := identifier.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	b := chain.BlockNumber()
	if err := chain.SetCancelledAt(identifier, b); err != nil {
		return nil, err
	}
	e.logger.Info("proposals cancelled", "identifier", identifier, "height", b)
	return &types.EventProposalsCancelled{Identifier: identifier, Height: b}, nil
}
