package scheduler

import (
	"errors"
	"testing"

	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) *state.State {
	t.Helper()
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	require.NoError(t, Init(st, 1, [3]uint64{3, 2, 2}, 1))
	return st
}

func TestInitRejectsZeroPhase(t *testing.T) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	err = Init(db.NewState(), 1, [3]uint64{3, 0, 2}, 1)
	require.ErrorIs(t, err, ErrZeroPhaseLength)
}

func TestOnBlock(t *testing.T) {
	st := newState(t)
	s := New(cmtlog.NewNopLogger())

	var seen []types.CeremonyPhase
	s.Register(func(_ *state.State, phase types.CeremonyPhase) ([]abcitypes.Event, error) {
		seen = append(seen, phase)
		return nil, nil
	})

	type step struct {
		height types.BlockNumber
		phase  types.CeremonyPhase
		cindex types.CeremonyIndex
		change bool
	}
	steps := []step{
		{2, types.PhaseRegistering, 1, false},
		{3, types.PhaseRegistering, 1, false},
		{4, types.PhaseAssigning, 1, true},
		{5, types.PhaseAssigning, 1, false},
		{6, types.PhaseAttesting, 1, true},
		{7, types.PhaseAttesting, 1, false},
		{8, types.PhaseRegistering, 2, true},
		{11, types.PhaseAssigning, 2, true},
	}
	for _, tt := range steps {
		st.SetHeight(tt.height)
		events, err := s.OnBlock(st)
		require.NoError(t, err)
		ss, err := st.SchedulerState()
		require.NoError(t, err)
		require.Equal(t, tt.phase, ss.Phase, "height %d", tt.height)
		require.Equal(t, tt.cindex, ss.CeremonyIndex, "height %d", tt.height)
		if !tt.change {
			require.Empty(t, events)
			continue
		}
		require.Len(t, events, 1)
		event := types.DecodeEventPhaseChanged(events[0])
		require.NotNil(t, event)
		require.Equal(t, tt.phase, event.Phase)
		require.Equal(t, tt.cindex, event.CeremonyIndex)
		require.Equal(t, tt.height, event.Height)
	}
	require.Equal(t, []types.CeremonyPhase{
		types.PhaseAssigning,
		types.PhaseAttesting,
		types.PhaseRegistering,
		types.PhaseAssigning,
	}, seen)

	cindex, err := st.CurrentCeremonyIndex()
	require.NoError(t, err)
	require.Equal(t, types.CeremonyIndex(2), cindex)
}

func TestHookError(t *testing.T) {
	st := newState(t)
	s := New(cmtlog.NewNopLogger())
	boom := errors.New("boom")
	s.Register(func(_ *state.State, _ types.CeremonyPhase) ([]abcitypes.Event, error) {
		return nil, boom
	})
	_, err := s.NextPhase(st)
	require.ErrorIs(t, err, boom)
}
