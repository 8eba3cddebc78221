package democracy

import (
	"github.com/calehh/democracy-app/types"
)

// UpdateProposalState advances proposal id at the current block:
//
//	Ongoing    -> Cancelled    class cancelled at or after start, or lifetime exceeded
//	Ongoing    -> Confirming   curve passes
//	Confirming -> Ongoing      curve fails
//	Confirming -> Approved     curve passes for ConfirmationPeriod blocks and
//	                           no other proposal of the class awaits enactment
//
// approved reports that the call moved the proposal to Approved and queued its
// action. The event is nil when the state did not change.
func (e *Engine) UpdateProposalState(chain Chain, id types.ProposalID) (approved bool, event *types.EventProposalStateChanged, err error) {
	p, err := e.proposal(chain, id)
	if err != nil {
		return false, nil, err
	}
	if p.State.IsTerminal() {
		return false, nil, ErrProposalCannotBeUpdated
	}
	b := chain.BlockNumber()
	from := p.State
	identifier := p.Action.Identifier()

	switch p.State.Kind {
	case types.ProposalOngoing:
		cancelledAt, cancelled, err := chain.CancelledAt(identifier)
		if err != nil {
			return false, nil, err
		}
		if cancelled && cancelledAt >= p.Start {
			p.State = types.Cancelled()
			break
		}
		if b-p.Start > e.params.ProposalLifetime*e.params.ProposalLifetimeCycles {
			p.State = types.Cancelled()
			break
		}
		passing, err := e.IsPassingProposal(chain, id)
		if err != nil {
			return false, nil, err
		}
		if passing {
			p.State = types.Confirming(b)
		}
	case types.ProposalConfirming:
		passing, err := e.IsPassingProposal(chain, id)
		if err != nil {
			return false, nil, err
		}
		if !passing {
			p.State = types.Ongoing()
			break
		}
		if b-p.State.Since >= e.params.ConfirmationPeriod {
			queued, found, err := chain.EnactmentEntry(identifier)
			if err != nil {
				return false, nil, err
			}
			if found && queued != id {
				// the class slot is taken until the queue drains
				e.logger.Info("proposal waits for enactment slot", "proposal", id, "queued", queued, "identifier", identifier)
				break
			}
			p.State = types.Approved()
			if err = chain.SetEnactmentEntry(identifier, id); err != nil {
				return false, nil, err
			}
			approved = true
		}
	}

	if p.State == from {
		return false, nil, nil
	}
	if err = chain.SetProposal(id, p); err != nil {
		return false, nil, err
	}
	e.logger.Info("proposal state changed", "proposal", id, "from", from, "to", p.State, "height", b)
	return approved, &types.EventProposalStateChanged{
		Proposal: id,
		From:     from,
		To:       p.State,
		Height:   b,
	}, nil
}
