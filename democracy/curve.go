package democracy

import (
	"github.com/calehh/democracy-app/types"
	"github.com/holiman/uint256"
)

// IsPassing evaluates the adaptive quorum biased curve. A tally passes when
//
//	turnout * 1000 >= minTurnout * electorate   (quorum, minTurnout in permill)
//	ayes * electorate >= turnout * (electorate - turnout)
//
// The required share of ayes falls linearly as turnout approaches the whole
// electorate. Zero turnout never passes. Products are computed in 256 bits.
func IsPassing(tally types.Tally, electorate uint64, minTurnout uint64) (bool, error) {
	if tally.Ayes > tally.Turnout || tally.Turnout > electorate {
		return false, ErrTallyInvariant
	}
	if tally.Turnout == 0 {
		return false, nil
	}
	var (
		turnout = uint256.NewInt(tally.Turnout)
		ayes    = uint256.NewInt(tally.Ayes)
		e       = uint256.NewInt(electorate)
		lhs     = new(uint256.Int)
		rhs     = new(uint256.Int)
	)
	lhs.Mul(turnout, uint256.NewInt(1000))
	rhs.Mul(uint256.NewInt(minTurnout), e)
	if lhs.Lt(rhs) {
		return false, nil
	}
	lhs.Mul(ayes, e)
	rhs.Sub(e, turnout)
	rhs.Mul(rhs, turnout)
	return !lhs.Lt(rhs), nil
}

// IsPassingProposal evaluates the curve for the stored tally of id.
func (e *Engine) IsPassingProposal(chain Chain, id types.ProposalID) (bool, error) {
	if _, err := e.proposal(chain, id); err != nil {
		return false, err
	}
	tally, _, err := chain.Tally(id)
	if err != nil {
		return false, err
	}
	electorate, err := e.Electorate(chain, id)
	if err != nil {
		return false, err
	}
	return IsPassing(tally, electorate, e.params.MinTurnout)
}
