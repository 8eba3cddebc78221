// Package scheduler advances ceremony phases by block count.
//
// Phases run Registering, Assigning, Attesting and back to Registering. The
// ceremony index is bumped every time Registering is entered, so a full cycle
// of hooks ends with the new ceremony open for registration.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

var ErrZeroPhaseLength = errors.New("phase length is zero")

// Hook is called once per phase change, after the new phase is stored.
type Hook func(st *state.State, phase types.CeremonyPhase) ([]abcitypes.Event, error)

type Scheduler struct {
	logger cmtlog.Logger
	hooks  []Hook
}

func New(logger cmtlog.Logger) *Scheduler {
	return &Scheduler{logger: logger.With("module", "scheduler")}
}

func (s *Scheduler) Register(hook Hook) {
	s.hooks = append(s.hooks, hook)
}

// Init stores the starting position: phase Registering of cindex, opened at
// height.
func Init(st *state.State, cindex types.CeremonyIndex, phaseBlocks [3]uint64, height types.BlockNumber) error {
	for i, n := range phaseBlocks {
		if n == 0 {
			return fmt.Errorf("%w: %v", ErrZeroPhaseLength, types.CeremonyPhase(i))
		}
	}
	return st.SetSchedulerState(&types.SchedulerState{
		Phase:         types.PhaseRegistering,
		CeremonyIndex: cindex,
		PhaseStart:    height,
		PhaseBlocks:   phaseBlocks,
	})
}

// OnBlock moves to the next phase once the current one has lasted its
// configured number of blocks. At most one phase change happens per block.
func (s *Scheduler) OnBlock(st *state.State) ([]abcitypes.Event, error) {
	ss, err := st.SchedulerState()
	if err != nil {
		return nil, err
	}
	h := st.BlockNumber()
	if h < ss.PhaseStart || h-ss.PhaseStart < ss.PhaseBlocks[ss.Phase] {
		return nil, nil
	}
	return s.NextPhase(st)
}

// NextPhase enters the next phase unconditionally and runs the hooks.
func (s *Scheduler) NextPhase(st *state.State) ([]abcitypes.Event, error) {
	ss, err := st.SchedulerState()
	if err != nil {
		return nil, err
	}
	ss.Phase = ss.Phase.Next()
	if ss.Phase == types.PhaseRegistering {
		ss.CeremonyIndex++
	}
	ss.PhaseStart = st.BlockNumber()
	if err = st.SetSchedulerState(ss); err != nil {
		return nil, err
	}
	s.logger.Info("phase changed", "phase", ss.Phase, "cindex", ss.CeremonyIndex, "height", ss.PhaseStart)

	events := []abcitypes.Event{types.EncodeEventPhaseChanged(&types.EventPhaseChanged{
		Phase:         ss.Phase,
		CeremonyIndex: ss.CeremonyIndex,
		Height:        ss.PhaseStart,
	})}
	for _, hook := range s.hooks {
		evs, err := hook(st, ss.Phase)
		if err != nil {
			s.logger.Error("phase hook fail", "phase", ss.Phase, "err", err)
			return nil, err
		}
		events = append(events, evs...)
	}
	return events, nil
}
