package democracy

import (
	"math"
	"testing"

	"github.com/calehh/democracy-app/types"
	"github.com/stretchr/testify/require"
)

func TestIsPassing(t *testing.T) {
	tests := []struct {
		name       string
		turnout    uint64
		ayes       uint64
		electorate uint64
		passing    bool
	}{
		{"below quorum", 1, 1, 100, false},
		{"low turnout needs more ayes", 10, 6, 100, false},
		{"low turnout enough ayes", 10, 9, 100, true},
		{"full turnout simple majority", 100, 60, 100, true},
		{"full turnout large majority", 100, 90, 100, true},
		{"full turnout no ayes", 100, 0, 100, true},
		{"half turnout half ayes", 50, 25, 100, true},
		{"half turnout below half", 50, 24, 100, false},
		{"zero turnout", 0, 0, 100, false},
		{"zero electorate", 0, 0, 0, false},
		{"quorum boundary", 2, 2, 100, true},
		{"large values", math.MaxUint64, math.MaxUint64 / 2, math.MaxUint64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passing, err := IsPassing(types.Tally{Turnout: tt.turnout, Ayes: tt.ayes}, tt.electorate, 20)
			require.NoError(t, err)
			require.Equal(t, tt.passing, passing)
		})
	}
}

func TestIsPassingInvariant(t *testing.T) {
	_, err := IsPassing(types.Tally{Turnout: 10, Ayes: 11}, 100, 20)
	require.ErrorIs(t, err, ErrTallyInvariant)

	_, err = IsPassing(types.Tally{Turnout: 101, Ayes: 1}, 100, 20)
	require.ErrorIs(t, err, ErrTallyInvariant)
}
