package democracy

import (
	"fmt"

	"github.com/calehh/democracy-app/types"
)

func (e *Engine) validateAction(chain Chain, action types.ProposalAction) error {
	if action == nil {
		return ErrInvalidAction
	}
	if err := action.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if cid, ok := action.Scope(); ok {
		exists, err := chain.HasCommunity(cid)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: unknown community %s", ErrInvalidAction, cid)
		}
	}
	return nil
}

// SubmitProposal stores a new Ongoing proposal with an empty tally. A class of
// action whose previous proposal is still queued for enactment is refused.
func (e *Engine) SubmitProposal(chain Chain, proposer types.AccountID, action types.ProposalAction) (types.ProposalID, *types.EventProposalSubmitted, error) {
	if err := e.validateAction(chain, action); err != nil {
		return 0, nil, err
	}
	identifier := action.Identifier()
	_, queued, err := chain.EnactmentEntry(identifier)
	if err != nil {
		return 0, nil, err
	}
	if queued {
		return 0, nil, ErrProposalWaitingForEnactment
	}
	cindex, err := chain.CurrentCeremonyIndex()
	if err != nil {
		return 0, nil, err
	}
	count, err := chain.ProposalCount()
	if err != nil {
		return 0, nil, err
	}
	id := count + 1
	p := &types.Proposal{
		Start:      chain.BlockNumber(),
		StartCycle: cindex,
		Action:     action,
		State:      types.Ongoing(),
	}
	if err = chain.SetProposal(id, p); err != nil {
		return 0, nil, err
	}
	if err = chain.SetTally(id, types.Tally{}); err != nil {
		return 0, nil, err
	}
	if err = chain.SetProposalCount(id); err != nil {
		return 0, nil, err
	}
	raw, err := types.MarshalAction(action)
	if err != nil {
		return 0, nil, err
	}
	e.logger.Debug("proposal submitted", "proposal", id, "identifier", identifier, "proposer", proposer)
	return id, &types.EventProposalSubmitted{
		Proposal:   id,
		Proposer:   proposer,
		Identifier: identifier,
		Start:      p.Start,
		StartCycle: p.StartCycle,
		Action:     raw,
	}, nil
}
