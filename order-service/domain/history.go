package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/order-system/shared/models"
)

// StepOutcomeKind classifies a recorded activity attempt
type StepOutcomeKind string

const (
	StepCompleted StepOutcomeKind = "completed"
	StepFailed    StepOutcomeKind = "failed"
)

// HistoryEntry is one record in the append-only orchestration history: one
// attempt of one activity at one step position. Entries are written before the
// state machine observes the outcome, so a crash between write and observation
// replays to the same decision.
type HistoryEntry struct {
	ID         models.ID       `json:"id"`
	InstanceID models.ID       `json:"instance_id"`
	StepIndex  int             `json:"step_index"`
	Activity   string          `json:"activity"`
	Attempt    int             `json:"attempt"`
	Kind       StepOutcomeKind `json:"kind"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewCompletedEntry records a successful activity attempt
func NewCompletedEntry(instanceID models.ID, stepIndex int, activity string, attempt int, input, output json.RawMessage) *HistoryEntry {
	return &HistoryEntry{
		ID:         models.GenerateUUID(),
		InstanceID: instanceID,
		StepIndex:  stepIndex,
		Activity:   activity,
		Attempt:    attempt,
		Kind:       StepCompleted,
		Input:      input,
		Output:     output,
		Timestamp:  time.Now(),
	}
}

// NewFailedEntry records a raised activity failure
func NewFailedEntry(instanceID models.ID, stepIndex int, activity string, attempt int, input json.RawMessage, execErr error) *HistoryEntry {
	entry := &HistoryEntry{
		ID:         models.GenerateUUID(),
		InstanceID: instanceID,
		StepIndex:  stepIndex,
		Activity:   activity,
		Attempt:    attempt,
		Kind:       StepFailed,
		Input:      input,
		Timestamp:  time.Now(),
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	return entry
}

// HistoryStore is the durable, append-only persistence contract the state
// machine depends on. Load returns entries ordered by append position.
type HistoryStore interface {
	Append(ctx context.Context, instanceID models.ID, entries ...*HistoryEntry) error
	Load(ctx context.Context, instanceID models.ID) ([]*HistoryEntry, error)
}
