package democracy

import (
	"github.com/calehh/democracy-app/types"
)

// inWindow reports start-lifetime <= cycle < start.
func (e *Engine) inWindow(start, cycle types.CeremonyIndex) bool {
	return cycle < start && uint64(cycle)+uint64(e.params.ReputationLifetime) >= uint64(start)
}

// EligibleReputations filters handles down to those account may spend on
// proposal id, keeping their order. A handle is spendable when it is in the
// proposal's scope, inside the freshness window, verified, and not spent on
// this proposal yet. Repeated handles count once.
func (e *Engine) EligibleReputations(chain Chain, id types.ProposalID, account types.AccountID, handles []types.ReputationHandle) ([]types.ReputationHandle, error) {
	if len(handles) > int(e.params.MaxReputationVecLength) {
		return nil, ErrTooManyReputations
	}
	p, err := e.proposal(chain, id)
	if err != nil {
		return nil, err
	}
	scope, scoped := p.Action.Scope()
	eligible := make([]types.ReputationHandle, 0, len(handles))
	seen := make(map[types.ReputationHandle]struct{}, len(handles))
	for _, h := range handles {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if scoped && h.Community != scope {
			continue
		}
		if !e.inWindow(p.StartCycle, h.Cycle) {
			continue
		}
		rep, err := chain.Reputation(h.Community, h.Cycle, account)
		if err != nil {
			return nil, err
		}
		if !rep.IsVerified() {
			continue
		}
		spent, err := chain.HasVoteEntry(id, account, h)
		if err != nil {
			return nil, err
		}
		if spent {
			continue
		}
		eligible = append(eligible, h)
	}
	return eligible, nil
}

// Electorate is the number of verified reputations that could vote on
// proposal id: the verified counts of every in-scope community over the
// freshness window.
func (e *Engine) Electorate(chain Chain, id types.ProposalID) (uint64, error) {
	p, err := e.proposal(chain, id)
	if err != nil {
		return 0, err
	}
	var cids []types.CommunityID
	if cid, ok := p.Action.Scope(); ok {
		cids = []types.CommunityID{cid}
	} else {
		cids, err = chain.KnownCommunities()
		if err != nil {
			return 0, err
		}
	}
	lower := types.CeremonyIndex(0)
	if p.StartCycle > e.params.ReputationLifetime {
		lower = p.StartCycle - e.params.ReputationLifetime
	}
	var electorate uint64
	for _, cid := range cids {
		for cycle := lower; cycle < p.StartCycle; cycle++ {
			n, err := chain.VerifiedCount(cid, cycle)
			if err != nil {
				return 0, err
			}
			electorate += n
		}
	}
	return electorate, nil
}
