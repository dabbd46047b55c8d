package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrCorruptHistory indicates a history log that no valid execution could
// have produced
var ErrCorruptHistory = errors.New("corrupt orchestration history")

// StepOutcome is the reduced view of all recorded attempts of one step
type StepOutcome struct {
	Activity       string
	Completed      bool
	Output         json.RawMessage
	FailedAttempts int
	LastError      string
}

// ReplayState is the result of reducing a history log: what each step position
// already produced, so the state machine can resume without re-invoking
// recorded work
type ReplayState struct {
	steps map[int]*StepOutcome
}

// RebuildReplayState reduces an ordered history log into per-step outcomes.
// It is a pure function of the log: replaying the same entries always yields
// the same state.
func RebuildReplayState(entries []*HistoryEntry) (*ReplayState, error) {
	state := &ReplayState{steps: make(map[int]*StepOutcome)}

	for _, entry := range entries {
		outcome, ok := state.steps[entry.StepIndex]
		if !ok {
			outcome = &StepOutcome{Activity: entry.Activity}
			state.steps[entry.StepIndex] = outcome
		}

		if outcome.Activity != entry.Activity {
			return nil, errors.Wrapf(ErrCorruptHistory,
				"step %d recorded for both %q and %q", entry.StepIndex, outcome.Activity, entry.Activity)
		}

		if outcome.Completed {
			return nil, errors.Wrapf(ErrCorruptHistory,
				"step %d has attempts after completion", entry.StepIndex)
		}

		switch entry.Kind {
		case StepCompleted:
			outcome.Completed = true
			outcome.Output = entry.Output
		case StepFailed:
			outcome.FailedAttempts++
			outcome.LastError = entry.Error
		default:
			return nil, errors.Wrapf(ErrCorruptHistory, "step %d has unknown outcome kind %q", entry.StepIndex, entry.Kind)
		}
	}

	return state, nil
}

// Outcome returns the recorded outcome at a step position, if any
func (s *ReplayState) Outcome(stepIndex int) (*StepOutcome, bool) {
	outcome, ok := s.steps[stepIndex]
	return outcome, ok
}

// Empty reports whether nothing has been recorded yet
func (s *ReplayState) Empty() bool {
	return len(s.steps) == 0
}
