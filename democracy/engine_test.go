package democracy

import (
	"fmt"
	"testing"

	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

const startCycle types.CeremonyIndex = 6

func testParams() Params {
	return Params{
		ReputationLifetime:     3,
		MinTurnout:             20,
		ConfirmationPeriod:     10,
		ProposalLifetime:       40,
		ProposalLifetimeCycles: 1,
		MaxReputationVecLength: 10,
	}
}

type fixture struct {
	engine *Engine
	st     *state.State
	cidA   types.CommunityID
	cidB   types.CommunityID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	st.SetHeight(1)
	require.NoError(t, st.SetSchedulerState(&types.SchedulerState{
		Phase:         types.PhaseRegistering,
		CeremonyIndex: startCycle,
		PhaseBlocks:   [3]uint64{10, 10, 10},
	}))

	f := &fixture{engine: NewEngine(testParams(), cmtlog.NewNopLogger()), st: st}
	f.cidA = f.addCommunity(t, "u0qj9", "Zurich")
	f.cidB = f.addCommunity(t, "sr2yk", "Leu")
	return f
}

func (f *fixture) addCommunity(t *testing.T, geohash, name string) types.CommunityID {
	t.Helper()
	cid, err := types.NewCommunityID(geohash, name)
	require.NoError(t, err)
	require.NoError(t, f.st.AddCommunity(&types.Community{ID: cid, Name: name, NominalIncome: 100}))
	return cid
}

func (f *fixture) verify(t *testing.T, cid types.CommunityID, cycle types.CeremonyIndex, accounts ...types.AccountID) {
	t.Helper()
	for _, a := range accounts {
		require.NoError(t, f.st.SetReputation(cid, cycle, a, types.ReputationVerifiedLinked))
	}
}

func (f *fixture) submit(t *testing.T, action types.ProposalAction) types.ProposalID {
	t.Helper()
	id, event, err := f.engine.SubmitProposal(f.st, account(0), action)
	require.NoError(t, err)
	require.NotNil(t, event)
	return id
}

func (f *fixture) stateOf(t *testing.T, id types.ProposalID) types.ProposalState {
	t.Helper()
	p, err := f.st.Proposal(id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.State
}

func account(i int) types.AccountID {
	return types.AccountID(fmt.Sprintf("%040X", i))
}

func TestSubmitProposal(t *testing.T) {
	f := newFixture(t)

	id := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 200})
	require.Equal(t, types.ProposalID(1), id)
	id = f.submit(t, &types.SetInactivityTimeout{Timeout: 20})
	require.Equal(t, types.ProposalID(2), id)

	p, err := f.st.Proposal(1)
	require.NoError(t, err)
	require.Equal(t, types.Ongoing(), p.State)
	require.Equal(t, types.BlockNumber(1), p.Start)
	require.Equal(t, startCycle, p.StartCycle)

	tally, found, err := f.st.Tally(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.Tally{}, tally)

	count, err := f.st.ProposalCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestSubmitProposalRejected(t *testing.T) {
	f := newFixture(t)
	unknown, err := types.NewCommunityID("gbsuv", "Nowhere")
	require.NoError(t, err)

	tests := []struct {
		name   string
		action types.ProposalAction
		err    error
	}{
		{"nil action", nil, ErrInvalidAction},
		{"zero timeout", &types.SetInactivityTimeout{}, ErrInvalidAction},
		{"unregistered community", &types.UpdateDemurrage{Community: unknown, Demurrage: 1}, ErrInvalidAction},
		{"malformed community", &types.UpdateNominalIncome{Community: "nope", Income: 1}, ErrInvalidAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.engine.SubmitProposal(f.st, account(0), tt.action)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSubmitProposalWaitingForEnactment(t *testing.T) {
	f := newFixture(t)
	action := &types.UpdateNominalIncome{Community: f.cidA, Income: 200}
	id := f.submit(t, action)
	require.NoError(t, f.st.SetEnactmentEntry(action.Identifier(), id))

	_, _, err := f.engine.SubmitProposal(f.st, account(0), &types.UpdateNominalIncome{Community: f.cidA, Income: 300})
	require.ErrorIs(t, err, ErrProposalWaitingForEnactment)

	// other classes are not blocked
	f.submit(t, &types.UpdateNominalIncome{Community: f.cidB, Income: 300})
	f.submit(t, &types.UpdateDemurrage{Community: f.cidA, Demurrage: 5})

	require.NoError(t, f.st.RemoveEnactmentEntry(action.Identifier()))
	f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 300})
}

func TestEligibleReputations(t *testing.T) {
	f := newFixture(t)
	voter := account(1)
	f.verify(t, f.cidA, 2, voter)
	f.verify(t, f.cidA, 3, voter)
	f.verify(t, f.cidA, 4, voter)
	f.verify(t, f.cidA, 5, voter)
	f.verify(t, f.cidA, 6, voter)
	f.verify(t, f.cidA, 7, voter)
	f.verify(t, f.cidB, 5, voter)
	require.NoError(t, f.st.SetReputation(f.cidA, 5, account(2), types.ReputationUnverifiedReputable))

	id := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 200})
	spent := types.ReputationHandle{Community: f.cidA, Cycle: 3}
	require.NoError(t, f.st.AddVoteEntry(id, voter, spent))

	valid := types.ReputationHandle{Community: f.cidA, Cycle: 5}
	tests := []struct {
		name    string
		account types.AccountID
		handle  types.ReputationHandle
		ok      bool
	}{
		{"valid", voter, valid, true},
		{"earlier cycle in window", voter, types.ReputationHandle{Community: f.cidA, Cycle: 4}, true},
		{"wrong scope", voter, types.ReputationHandle{Community: f.cidB, Cycle: 5}, false},
		{"older than lifetime", voter, types.ReputationHandle{Community: f.cidA, Cycle: 2}, false},
		{"start cycle", voter, types.ReputationHandle{Community: f.cidA, Cycle: 6}, false},
		{"future cycle", voter, types.ReputationHandle{Community: f.cidA, Cycle: 7}, false},
		{"unverified", account(3), valid, false},
		{"unverified reputable", account(2), valid, false},
		{"already spent", voter, spent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, err := f.engine.EligibleReputations(f.st, id, tt.account, []types.ReputationHandle{tt.handle})
			require.NoError(t, err)
			if tt.ok {
				require.Equal(t, []types.ReputationHandle{tt.handle}, eligible)
			} else {
				require.Empty(t, eligible)
			}
		})
	}

	t.Run("order preserving subset", func(t *testing.T) {
		in := []types.ReputationHandle{
			{Community: f.cidA, Cycle: 5},
			{Community: f.cidA, Cycle: 7},
			{Community: f.cidA, Cycle: 4},
			{Community: f.cidA, Cycle: 5},
			spent,
		}
		eligible, err := f.engine.EligibleReputations(f.st, id, voter, in)
		require.NoError(t, err)
		require.Equal(t, []types.ReputationHandle{in[0], in[2]}, eligible)
	})

	t.Run("network scope accepts any community", func(t *testing.T) {
		nid := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})
		in := []types.ReputationHandle{{Community: f.cidB, Cycle: 5}, {Community: f.cidA, Cycle: 3}}
		eligible, err := f.engine.EligibleReputations(f.st, nid, voter, in)
		require.NoError(t, err)
		require.Equal(t, in, eligible)
	})

	t.Run("too many", func(t *testing.T) {
		in := make([]types.ReputationHandle, testParams().MaxReputationVecLength+1)
		_, err := f.engine.EligibleReputations(f.st, id, voter, in)
		require.ErrorIs(t, err, ErrTooManyReputations)
	})

	t.Run("inexistent proposal", func(t *testing.T) {
		_, err := f.engine.EligibleReputations(f.st, 99, voter, []types.ReputationHandle{valid})
		require.ErrorIs(t, err, ErrInexistentProposal)
	})
}

func TestVoteNeverRecountsHandle(t *testing.T) {
	f := newFixture(t)
	voter := account(1)
	f.verify(t, f.cidA, 4, voter)
	f.verify(t, f.cidA, 5, voter)
	id := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 200})

	h4 := types.ReputationHandle{Community: f.cidA, Cycle: 4}
	h5 := types.ReputationHandle{Community: f.cidA, Cycle: 5}

	event, err := f.engine.Vote(f.st, id, voter, types.VoteAye, []types.ReputationHandle{h5, h5})
	require.NoError(t, err)
	require.Equal(t, uint64(1), event.Spent)

	event, err = f.engine.Vote(f.st, id, voter, types.VoteNay, []types.ReputationHandle{h5})
	require.NoError(t, err)
	require.Zero(t, event.Spent)

	// newly claimed handle still counts
	event, err = f.engine.Vote(f.st, id, voter, types.VoteNay, []types.ReputationHandle{h5, h4})
	require.NoError(t, err)
	require.Equal(t, uint64(1), event.Spent)

	tally, _, err := f.st.Tally(id)
	require.NoError(t, err)
	require.Equal(t, types.Tally{Turnout: 2, Ayes: 1}, tally)

	spent, err := f.st.HasVoteEntry(id, voter, h4)
	require.NoError(t, err)
	require.True(t, spent)
}

func TestVoteErrors(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})

	_, err := f.engine.Vote(f.st, 42, account(1), types.VoteAye, nil)
	require.ErrorIs(t, err, ErrInexistentProposal)

	_, err = f.engine.Vote(f.st, id, account(1), types.Vote(7), nil)
	require.ErrorIs(t, err, ErrInvalidVote)

	event, err := f.engine.Vote(f.st, id, account(1), types.VoteAye, []types.ReputationHandle{{Community: f.cidA, Cycle: 5}})
	require.NoError(t, err)
	require.Zero(t, event.Spent)

	p, err := f.st.Proposal(id)
	require.NoError(t, err)
	p.State = types.Cancelled()
	require.NoError(t, f.st.SetProposal(id, p))
	_, err = f.engine.Vote(f.st, id, account(1), types.VoteAye, nil)
	require.ErrorIs(t, err, ErrProposalCannotBeVoted)
}

func TestElectorate(t *testing.T) {
	f := newFixture(t)
	f.verify(t, f.cidA, 4, account(1))
	f.verify(t, f.cidA, 5, account(1))
	f.verify(t, f.cidB, 3, account(2), account(3))
	f.verify(t, f.cidB, 5, account(2))
	// outside the window
	f.verify(t, f.cidA, 2, account(4), account(5))
	f.verify(t, f.cidA, 6, account(4))

	network := f.submit(t, &types.SetInactivityTimeout{Timeout: 9})
	community := f.submit(t, &types.UpdateNominalIncome{Community: f.cidA, Income: 1})

	e, err := f.engine.Electorate(f.st, network)
	require.NoError(t, err)
	require.Equal(t, uint64(5), e)

	e, err = f.engine.Electorate(f.st, community)
	require.NoError(t, err)
	require.Equal(t, uint64(2), e)

	// removed communities keep counting for network scope
	require.NoError(t, f.st.RemoveCommunity(f.cidB))
	e, err = f.engine.Electorate(f.st, network)
	require.NoError(t, err)
	require.Equal(t, uint64(5), e)

	_, err = f.engine.Electorate(f.st, 77)
	require.ErrorIs(t, err, ErrInexistentProposal)
}
