package democracy

import (
	"github.com/calehh/democracy-app/types"
)

// Vote spends the eligible subset of handles on proposal id. Each counted
// handle is recorded so it cannot be spent on id again. Claiming nothing
// spendable is not an error.
func (e *Engine) Vote(chain Chain, id types.ProposalID, account types.AccountID, vote types.Vote, handles []types.ReputationHandle) (*types.EventVoted, error) {
	if vote != types.VoteAye && vote != types.VoteNay {
		return nil, ErrInvalidVote
	}
	p, err := e.proposal(chain, id)
	if err != nil {
		return nil, err
	}
	if p.State.Kind != types.ProposalOngoing && p.State.Kind != types.ProposalConfirming {
		return nil, ErrProposalCannotBeVoted
	}
	eligible, err := e.EligibleReputations(chain, id, account, handles)
	if err != nil {
		return nil, err
	}
	tally, _, err := chain.Tally(id)
	if err != nil {
		return nil, err
	}
	for _, h := range eligible {
		if err = chain.AddVoteEntry(id, account, h); err != nil {
			return nil, err
		}
	}
	n := uint64(len(eligible))
	if n > 0 {
		tally.Turnout += n
		if vote == types.VoteAye {
			tally.Ayes += n
		}
		if err = chain.SetTally(id, tally); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("vote", "proposal", id, "account", account, "vote", vote, "claimed", len(handles), "counted", n)
	return &types.EventVoted{
		Proposal: id,
		Voter:    account,
		Vote:     vote,
		Spent:    n,
		Turnout:  tally.Turnout,
		Ayes:     tally.Ayes,
	}, nil
}
