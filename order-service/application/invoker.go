package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ErrRetriesExhausted indicates an activity raised on every attempt the
// retry policy allowed
var ErrRetriesExhausted = errors.New("activity retries exhausted")

// AttemptObserver is called after every activity attempt, before the caller
// observes its result. The orchestration engine uses it to durably record
// each outcome. A non-nil return aborts the invocation.
type AttemptObserver func(ctx context.Context, attempt int, output json.RawMessage, execErr error) error

// ActivityInvoker executes named activities, optionally under a retry policy
type ActivityInvoker struct {
	registry *domain.ActivityRegistry
	sleeper  domain.Sleeper
}

// NewActivityInvoker creates a new ActivityInvoker
func NewActivityInvoker(registry *domain.ActivityRegistry, sleeper domain.Sleeper) *ActivityInvoker {
	return &ActivityInvoker{
		registry: registry,
		sleeper:  sleeper,
	}
}

// Call executes a single activity attempt without retries
func (inv *ActivityInvoker) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	activity, err := inv.registry.Get(name)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "activity."+name)
	defer span.End()

	start := time.Now()
	output, execErr := activity.Execute(ctx, input)

	status := "completed"
	if execErr != nil {
		status = "failed"
	}

	telemetry.RecordCounter(ctx, "activity_invocations_total", "Total activity invocations", 1,
		attribute.String("activity", name),
		attribute.String("status", status),
	)
	telemetry.RecordHistogram(ctx, "activity_duration_seconds", "Activity execution duration", time.Since(start).Seconds(),
		attribute.String("activity", name),
	)

	return output, execErr
}

// CallWithRetry executes an activity under a retry policy, starting at the
// first attempt
func (inv *ActivityInvoker) CallWithRetry(
	ctx context.Context,
	name string,
	input json.RawMessage,
	policy domain.RetryPolicy,
	observe AttemptObserver,
) (json.RawMessage, error) {
	return inv.CallWithRetryFrom(ctx, name, input, policy, 1, observe)
}

// CallWithRetryFrom executes an activity under a retry policy starting at the
// given attempt number. Resumed orchestrations use it to continue a step that
// already has recorded failed attempts.
func (inv *ActivityInvoker) CallWithRetryFrom(
	ctx context.Context,
	name string,
	input json.RawMessage,
	policy domain.RetryPolicy,
	startAttempt int,
	observe AttemptObserver,
) (json.RawMessage, error) {
	if startAttempt < 1 {
		startAttempt = 1
	}

	for attempt := startAttempt; ; attempt++ {
		output, execErr := inv.Call(ctx, name, input)

		if observe != nil {
			if err := observe(ctx, attempt, output, execErr); err != nil {
				return nil, errors.Wrap(err, "failed to record activity attempt")
			}
		}

		if execErr == nil {
			return output, nil
		}

		if !policy.ShouldRetry(attempt) {
			return nil, errors.Wrapf(ErrRetriesExhausted, "%s failed after %d attempts: %v", name, attempt, execErr)
		}

		if err := inv.sleeper.Sleep(ctx, policy.BackoffDelay()); err != nil {
			return nil, errors.Wrap(err, "retry wait interrupted")
		}
	}
}
