package application

import (
	"context"
	"encoding/json"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/orderflow/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInstanceNotFound indicates an unknown orchestration instance id
var ErrInstanceNotFound = errors.New("orchestration instance not found")

// RunOrchestration drives an orchestration instance to a terminal state.
// Execute is safe to call any number of times on the same instance: every
// activity attempt is appended to the history store before its result is
// acted on, and a re-run replays recorded outcomes instead of re-invoking
// the activities that produced them.
type RunOrchestration struct {
	instances      domain.InstanceRepository
	history        domain.HistoryStore
	invoker        *ActivityInvoker
	eventPublisher events.Publisher
	policy         domain.RetryPolicy
}

// NewRunOrchestration creates a new RunOrchestration use case
func NewRunOrchestration(
	instances domain.InstanceRepository,
	history domain.HistoryStore,
	invoker *ActivityInvoker,
	eventPublisher events.Publisher,
	policy domain.RetryPolicy,
) *RunOrchestration {
	return &RunOrchestration{
		instances:      instances,
		history:        history,
		invoker:        invoker,
		eventPublisher: eventPublisher,
		policy:         policy,
	}
}

// Execute runs the instance forward until it completes, fails, or hits an
// infrastructure error. Infrastructure errors leave the instance running so
// a later re-run can pick it up where the history ends.
func (uc *RunOrchestration) Execute(ctx context.Context, instanceID models.ID) (*domain.OrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestration.run",
		trace.WithAttributes(attribute.String("instance_id", instanceID.String())))
	defer span.End()

	instance, err := uc.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find orchestration instance")
	}

	if instance == nil {
		return nil, ErrInstanceNotFound
	}

	if instance.IsTerminal() {
		// Already finished on a previous run; return the recorded outcome
		// without touching any activity.
		return instance.Result, nil
	}

	entries, err := uc.history.Load(ctx, instance.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load orchestration history")
	}

	replay, err := domain.RebuildReplayState(entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rebuild replay state")
	}

	run := &orchestrationRun{
		uc:       uc,
		instance: instance,
		replay:   replay,
	}

	return run.execute(ctx)
}

// orchestrationRun holds the step cursor of a single execution pass. The
// cursor advances once per scheduled activity, so a step keeps the same
// index across replays of the same branch.
type orchestrationRun struct {
	uc       *RunOrchestration
	instance *domain.OrchestrationInstance
	replay   *domain.ReplayState
	cursor   int
}

func (r *orchestrationRun) execute(ctx context.Context) (*domain.OrderResult, error) {
	payload := r.instance.Input
	inventoryReq := domain.NewInventoryRequest(r.instance.ID, payload)

	reserveOut, err := r.step(ctx, domain.ActivityReserveInventory, inventoryReq, r.uc.policy)
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return nil, r.fail(ctx, err)
		}
		return nil, err
	}

	var inventory domain.InventoryResult
	if err := domain.DecodeMessage(reserveOut, &inventory); err != nil {
		return nil, r.fail(ctx, errors.Wrap(err, "invalid inventory reservation result"))
	}

	if !inventory.Success {
		r.notify(ctx, domain.NewInsufficientInventoryNotification(payload.OrderName))
		return r.complete(ctx, domain.StatusInsufficientInventory, domain.OrderResult{Processed: false})
	}

	paymentReq := domain.NewPaymentRequest(r.instance.ID, payload)
	if _, err := r.step(ctx, domain.ActivityProcessPayment, paymentReq, r.uc.policy); err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return nil, r.fail(ctx, err)
		}
		return nil, err
	}

	if _, err := r.step(ctx, domain.ActivityUpdateInventory, inventoryReq, r.uc.policy); err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			// The customer was already charged, so refund and report the
			// failed update instead of failing the instance outright.
			r.notify(ctx, domain.NewRefundNotification(payload.OrderName))
			return r.complete(ctx, domain.StatusInventoryUpdateFailed, domain.OrderResult{Processed: false})
		}
		return nil, err
	}

	r.notify(ctx, domain.NewOrderPlacedNotification(payload.OrderName))
	return r.complete(ctx, domain.StatusOrderPlaced, domain.OrderResult{Processed: true})
}

// step schedules one activity at the next cursor position, consulting the
// replay state before invoking anything
func (r *orchestrationRun) step(ctx context.Context, name string, input interface{}, policy domain.RetryPolicy) (json.RawMessage, error) {
	idx := r.cursor
	r.cursor++

	encoded, err := domain.EncodeMessage(input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s input", name)
	}

	startAttempt := 1
	if outcome, ok := r.replay.Outcome(idx); ok {
		if outcome.Completed {
			return outcome.Output, nil
		}

		if outcome.FailedAttempts >= policy.MaxAttempts {
			return nil, errors.Wrapf(ErrRetriesExhausted, "%s failed after %d recorded attempts: %s",
				name, outcome.FailedAttempts, outcome.LastError)
		}

		startAttempt = outcome.FailedAttempts + 1
	}

	observe := func(ctx context.Context, attempt int, output json.RawMessage, execErr error) error {
		var entry *domain.HistoryEntry
		var event *events.Event
		if execErr == nil {
			entry = domain.NewCompletedEntry(r.instance.ID, idx, name, attempt, encoded, output)
			event = events.NewEvent(r.instance.ID, events.ActivityCompletedEvent, domain.ActivityCompletedData{
				InstanceID: r.instance.ID,
				StepIndex:  idx,
				Activity:   name,
				Attempt:    attempt,
			})
		} else {
			entry = domain.NewFailedEntry(r.instance.ID, idx, name, attempt, encoded, execErr)
			event = events.NewEvent(r.instance.ID, events.ActivityFailedEvent, domain.ActivityFailedData{
				InstanceID: r.instance.ID,
				StepIndex:  idx,
				Activity:   name,
				Attempt:    attempt,
				Error:      execErr.Error(),
			})
		}

		if err := r.uc.history.Append(ctx, r.instance.ID, entry); err != nil {
			return err
		}

		// The history store is the source of truth; the progress event is
		// informational and must not stall the orchestration.
		if err := r.uc.eventPublisher.Publish(ctx, event.WithCorrelationID(r.instance.ID)); err != nil {
			telemetry.RecordCounter(ctx, "activity_events_dropped_total", "Activity progress events that could not be published", 1,
				attribute.String("activity", name))
		}

		return nil
	}

	return r.uc.invoker.CallWithRetryFrom(ctx, name, encoded, policy, startAttempt, observe)
}

// notify schedules the notify activity best-effort. Notification problems
// never change the outcome of the order.
func (r *orchestrationRun) notify(ctx context.Context, notification domain.Notification) {
	if _, err := r.step(ctx, domain.ActivityNotifyCustomer, notification, domain.NoRetryPolicy()); err != nil {
		telemetry.RecordCounter(ctx, "notifications_failed_total", "Customer notifications that could not be delivered", 1,
			attribute.String("instance_id", r.instance.ID.String()))
	}
}

func (r *orchestrationRun) complete(ctx context.Context, customStatus string, result domain.OrderResult) (*domain.OrderResult, error) {
	if err := r.instance.Complete(customStatus, result); err != nil {
		return nil, errors.Wrap(err, "failed to complete orchestration instance")
	}

	if err := r.persist(ctx); err != nil {
		return nil, err
	}

	telemetry.RecordCounter(ctx, "orchestrations_completed_total", "Orchestrations that reached a completed state", 1,
		attribute.String("custom_status", customStatus))

	return r.instance.Result, nil
}

// fail terminally fails the instance and returns the originating error
func (r *orchestrationRun) fail(ctx context.Context, cause error) error {
	if err := r.instance.Fail(cause.Error()); err != nil {
		return errors.Wrap(err, "failed to fail orchestration instance")
	}

	if err := r.persist(ctx); err != nil {
		return err
	}

	telemetry.RecordCounter(ctx, "orchestrations_failed_total", "Orchestrations that reached a failed state", 1)

	return cause
}

func (r *orchestrationRun) persist(ctx context.Context) error {
	if err := r.uc.instances.Save(ctx, r.instance); err != nil {
		return errors.Wrap(err, "failed to save orchestration instance")
	}

	if len(r.instance.Events()) > 0 {
		if err := r.uc.eventPublisher.Publish(ctx, r.instance.Events()...); err != nil {
			return errors.Wrap(err, "failed to publish orchestration events")
		}
		r.instance.ClearEvents()
	}

	return nil
}
