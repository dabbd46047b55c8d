package application

import (
	"context"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/orderflow/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidOrder indicates a command that failed order payload validation
var ErrInvalidOrder = errors.New("invalid order")

// StartOrderCommand carries the input of a new order orchestration
type StartOrderCommand struct {
	OrderName string  `json:"order_name"`
	TotalCost float64 `json:"total_cost"`
	Quantity  int     `json:"quantity"`
}

// StartOrderResponse is the acknowledgement returned to the caller. The
// instance id is the handle for polling the orchestration status.
type StartOrderResponse struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
}

// InstanceRunner drives a started instance to a terminal state
type InstanceRunner interface {
	Execute(ctx context.Context, instanceID models.ID) (*domain.OrderResult, error)
}

// StartOrderProcessing creates a new orchestration instance and kicks off
// its first run in the background
type StartOrderProcessing struct {
	instances      domain.InstanceRepository
	eventPublisher events.Publisher
	runner         InstanceRunner
}

// NewStartOrderProcessing creates a new StartOrderProcessing use case
func NewStartOrderProcessing(
	instances domain.InstanceRepository,
	eventPublisher events.Publisher,
	runner InstanceRunner,
) *StartOrderProcessing {
	return &StartOrderProcessing{
		instances:      instances,
		eventPublisher: eventPublisher,
		runner:         runner,
	}
}

// Execute validates the command, persists a running instance, and returns
// immediately. The orchestration advances on a background run; its failures
// are recorded on the instance and picked up by the resume sweep.
func (uc *StartOrderProcessing) Execute(ctx context.Context, cmd StartOrderCommand) (*StartOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "order.start")
	defer span.End()

	payload := domain.OrderPayload{
		OrderName: cmd.OrderName,
		TotalCost: cmd.TotalCost,
		Quantity:  cmd.Quantity,
	}

	if err := payload.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidOrder, err.Error())
	}

	instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder, payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start orchestration")
	}

	if err := uc.instances.Save(ctx, instance); err != nil {
		return nil, errors.Wrap(err, "failed to save orchestration instance")
	}

	if err := uc.eventPublisher.Publish(ctx, instance.Events()...); err != nil {
		return nil, errors.Wrap(err, "failed to publish orchestration events")
	}
	instance.ClearEvents()

	telemetry.RecordCounter(ctx, "orchestrations_started_total", "Orchestrations accepted for processing", 1,
		attribute.String("orchestrator", instance.Name))

	go func() {
		// The run outlives the request; its outcome lands on the instance.
		_, _ = uc.runner.Execute(context.WithoutCancel(ctx), instance.ID)
	}()

	return &StartOrderResponse{
		InstanceID: instance.ID.String(),
		Status:     string(instance.Status),
	}, nil
}
