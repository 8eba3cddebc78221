package democracy

import (
	"testing"

	"github.com/calehh/democracy-app/types"
	"github.com/stretchr/testify/require"
)

// electorate gives community A three verified reputations in cycle 5.
func (f *fixture) electorate(t *testing.T) {
	t.Helper()
	f.verify(t, f.cidA, 5, account(1), account(2), account(3))
}

func (f *fixture) setTally(t *testing.T, id types.ProposalID, turnout, ayes uint64) {
	t.Helper()
	require.NoError(t, f.st.SetTally(id, types.Tally{Turnout: turnout, Ayes: ayes}))
}

func (f *fixture) update(t *testing.T, id types.ProposalID) (bool, *types.EventProposalStateChanged) {
	t.Helper()
	approved, event, err := f.engine.UpdateProposalState(f.st, id)
	require.NoError(t, err)
	return approved, event
}

func TestUpdateProposalStateConfirmation(t *testing.T) {
	f := newFixture(t)
	f.electorate(t)
	action := &types.UpdateNominalIncome{Community: f.cidA, Income: 250}
	id := f.submit(t, action)

	approved, event := f.update(t, id)
	require.False(t, approved)
	require.Nil(t, event)
	require.Equal(t, types.Ongoing(), f.stateOf(t, id))

	f.setTally(t, id, 2, 2)
	f.st.SetHeight(5)
	approved, event = f.update(t, id)
	require.False(t, approved)
	require.NotNil(t, event)
	require.Equal(t, types.Ongoing(), event.From)
	require.Equal(t, types.Confirming(5), f.stateOf(t, id))

	// curve fails again: back to ongoing
	f.setTally(t, id, 2, 0)
	f.st.SetHeight(6)
	f.update(t, id)
	require.Equal(t, types.Ongoing(), f.stateOf(t, id))

	// confirmation restarts from a fresh block
	f.setTally(t, id, 3, 2)
	f.st.SetHeight(8)
	f.update(t, id)
	require.Equal(t, types.Confirming(8), f.stateOf(t, id))

	f.st.SetHeight(17)
	approved, event = f.update(t, id)
	require.False(t, approved)
	require.Nil(t, event)
	require.Equal(t, types.Confirming(8), f.stateOf(t, id))

	f.st.SetHeight(18)
	approved, event = f.update(t, id)
	require.True(t, approved)
	require.Equal(t, types.Approved(), event.To)
	require.Equal(t, types.Approved(), f.stateOf(t, id))

	queued, found, err := f.st.EnactmentEntry(action.Identifier())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, queued)

	_, _, err = f.engine.UpdateProposalState(f.st, id)
	require.ErrorIs(t, err, ErrProposalCannotBeUpdated)
}

func TestUpdateProposalStateWaitsForEnactmentSlot(t *testing.T) {
	f := newFixture(t)
	f.electorate(t)
	first := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 200})
	second := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 300})
	identifier := types.ProposalActionIdentifier{Kind: types.ActionUpdateNominalIncome, Community: f.cidA}

	f.setTally(t, first, 3, 3)
	f.setTally(t, second, 3, 3)
	f.st.SetHeight(5)
	f.update(t, first)
	f.update(t, second)
	require.Equal(t, types.Confirming(5), f.stateOf(t, second))

	f.st.SetHeight(15)
	approved, _ := f.update(t, first)
	require.True(t, approved)
	approved, event := f.update(t, second)
	require.False(t, approved)
	require.Nil(t, event)
	require.Equal(t, types.Confirming(5), f.stateOf(t, second))
	queued, _, err := f.st.EnactmentEntry(identifier)
	require.NoError(t, err)
	require.Equal(t, first, queued)

	_, err = f.engine.Enact(f.st)
	require.NoError(t, err)
	require.Equal(t, types.Enacted(), f.stateOf(t, first))

	approved, _ = f.update(t, second)
	require.True(t, approved)
	_, err = f.engine.Enact(f.st)
	require.NoError(t, err)
	require.Equal(t, types.Enacted(), f.stateOf(t, second))
	c, err := f.st.Community(f.cidA)
	require.NoError(t, err)
	require.Equal(t, uint64(300), c.NominalIncome)
}

func TestUpdateProposalStateExpiry(t *testing.T) {
	tests := []struct {
		name   string
		offset uint64
		state  types.ProposalState
	}{
		{"within lifetime", 39, types.Ongoing()},
		{"last block of lifetime", 40, types.Ongoing()},
		{"lifetime exceeded", 41, types.Cancelled()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})
			f.st.SetHeight(1 + tt.offset)
			f.update(t, id)
			require.Equal(t, tt.state, f.stateOf(t, id))
		})
	}
}

func TestUpdateProposalStateRetroactiveCancel(t *testing.T) {
	f := newFixture(t)
	f.electorate(t)
	action := &types.UpdateNominalIncome{Community: f.cidA, Income: 250}
	before := f.submit(t, action)
	f.setTally(t, before, 3, 3)

	f.st.SetHeight(4)
	event, err := f.engine.CancelProposals(f.st, action.Identifier())
	require.NoError(t, err)
	require.Equal(t, types.BlockNumber(4), event.Height)

	sameBlock := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 300})
	other := f.submit(t, &types.UpdateDemurrage{Community: f.cidA, Demurrage: 3})
	f.st.SetHeight(5)
	after := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 350})

	f.st.SetHeight(6)
	for _, id := range []types.ProposalID{before, sameBlock, other, after} {
		f.update(t, id)
	}
	require.Equal(t, types.Cancelled(), f.stateOf(t, before))
	require.Equal(t, types.Cancelled(), f.stateOf(t, sameBlock))
	require.Equal(t, types.Ongoing(), f.stateOf(t, other))
	require.Equal(t, types.Ongoing(), f.stateOf(t, after))

	_, err = f.engine.CancelProposals(f.st, types.ProposalActionIdentifier{Kind: types.ActionUpdateNominalIncome})
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestUpdateProposalStateErrors(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.engine.UpdateProposalState(f.st, 1)
	require.ErrorIs(t, err, ErrInexistentProposal)

	for _, s := range []types.ProposalState{types.Approved(), types.Cancelled(), types.Enacted()} {
		id := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})
		p, err := f.st.Proposal(id)
		require.NoError(t, err)
		p.State = s
		require.NoError(t, f.st.SetProposal(id, p))
		_, _, err = f.engine.UpdateProposalState(f.st, id)
		require.ErrorIs(t, err, ErrProposalCannotBeUpdated, s.String())
	}

	id := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})
	f.setTally(t, id, 1, 1)
	_, _, err = f.engine.UpdateProposalState(f.st, id)
	require.ErrorIs(t, err, ErrTallyInvariant)
}
