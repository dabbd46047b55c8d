package domain

import (
	"context"
	"time"

	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// InstanceStatus represents the status of an orchestration instance
type InstanceStatus string

const (
	InstanceStatusRunning   InstanceStatus = "running"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusFailed    InstanceStatus = "failed"
)

// Custom status labels reported to callers at each terminal branch
const (
	StatusInsufficientInventory = "Insufficient inventory."
	StatusInventoryUpdateFailed = "Failed to update inventory."
	StatusOrderPlaced           = "Order placed successfully."
)

// OrchestratorProcessOrder is the registered name of the order workflow
const OrchestratorProcessOrder = "process_order"

// ErrInstanceTerminal indicates a mutation of an instance that already
// reached a terminal state
var ErrInstanceTerminal = errors.New("orchestration instance already reached a terminal state")

// OrchestrationInstance aggregate root: one durably-tracked execution of the
// order workflow. Mutated exclusively by the state machine; immutable once
// the status leaves running.
type OrchestrationInstance struct {
	ID            models.ID
	Name          string
	Input         OrderPayload
	Status        InstanceStatus
	CustomStatus  string
	Result        *OrderResult
	FailureReason string
	Timestamps    models.Timestamps
	Version       models.Version

	events []*events.Event
}

// StartOrchestration factory method
func StartOrchestration(name string, input OrderPayload) (*OrchestrationInstance, error) {
	if name == "" {
		return nil, errors.New("orchestrator name is required")
	}

	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid order payload")
	}

	instance := &OrchestrationInstance{
		ID:         models.GenerateUUID(),
		Name:       name,
		Input:      input,
		Status:     InstanceStatusRunning,
		Timestamps: models.NewTimestamps(),
		Version:    models.NewVersion(),
	}

	event := events.NewEvent(instance.ID, events.OrchestrationStartedEvent, OrchestrationStartedData{
		InstanceID: instance.ID,
		Name:       instance.Name,
		Input:      instance.Input,
	}).WithCorrelationID(instance.ID)

	instance.recordEvent(event)
	return instance, nil
}

// Complete terminally completes the instance with a custom status and result.
// Every completion path sets both exactly once.
func (i *OrchestrationInstance) Complete(customStatus string, result OrderResult) error {
	if i.IsTerminal() {
		return ErrInstanceTerminal
	}

	i.Status = InstanceStatusCompleted
	i.CustomStatus = customStatus
	i.Result = &result
	i.Timestamps = i.Timestamps.Update()
	i.Version = i.Version.Update()

	event := events.NewEvent(i.ID, events.OrchestrationCompletedEvent, OrchestrationCompletedData{
		InstanceID:   i.ID,
		CustomStatus: customStatus,
		Result:       result,
		CompletedAt:  time.Now(),
	}).WithCorrelationID(i.ID)

	i.recordEvent(event)
	return nil
}

// Fail terminally fails the instance with an error detail. No custom status
// or result is set on this path.
func (i *OrchestrationInstance) Fail(reason string) error {
	if i.IsTerminal() {
		return ErrInstanceTerminal
	}

	i.Status = InstanceStatusFailed
	i.FailureReason = reason
	i.Timestamps = i.Timestamps.Update()
	i.Version = i.Version.Update()

	event := events.NewEvent(i.ID, events.OrchestrationFailedEvent, OrchestrationFailedData{
		InstanceID: i.ID,
		Reason:     reason,
		FailedAt:   time.Now(),
	}).WithCorrelationID(i.ID)

	i.recordEvent(event)
	return nil
}

// IsTerminal reports whether the instance stopped scheduling work
func (i *OrchestrationInstance) IsTerminal() bool {
	return i.Status != InstanceStatusRunning
}

// Events returns domain events
func (i *OrchestrationInstance) Events() []*events.Event {
	return i.events
}

// ClearEvents clears domain events
func (i *OrchestrationInstance) ClearEvents() {
	i.events = make([]*events.Event, 0)
}

// recordEvent records a domain event
func (i *OrchestrationInstance) recordEvent(event *events.Event) {
	i.events = append(i.events, event)
}

// Event Data Structures
type OrchestrationStartedData struct {
	InstanceID models.ID    `json:"instance_id"`
	Name       string       `json:"name"`
	Input      OrderPayload `json:"input"`
}

type OrchestrationCompletedData struct {
	InstanceID   models.ID   `json:"instance_id"`
	CustomStatus string      `json:"custom_status"`
	Result       OrderResult `json:"result"`
	CompletedAt  time.Time   `json:"completed_at"`
}

type OrchestrationFailedData struct {
	InstanceID models.ID `json:"instance_id"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

type OrchestrationResumedData struct {
	InstanceID models.ID `json:"instance_id"`
	ResumedAt  time.Time `json:"resumed_at"`
}

type ActivityCompletedData struct {
	InstanceID models.ID `json:"instance_id"`
	StepIndex  int       `json:"step_index"`
	Activity   string    `json:"activity"`
	Attempt    int       `json:"attempt"`
}

type ActivityFailedData struct {
	InstanceID models.ID `json:"instance_id"`
	StepIndex  int       `json:"step_index"`
	Activity   string    `json:"activity"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error"`
}

// InstanceRepository interface
type InstanceRepository interface {
	Save(ctx context.Context, instance *OrchestrationInstance) error
	FindByID(ctx context.Context, id models.ID) (*OrchestrationInstance, error)
	FindRunningBefore(ctx context.Context, cutoff time.Time) ([]*OrchestrationInstance, error)
}
