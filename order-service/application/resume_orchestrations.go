package application

import (
	"context"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/telemetry"
	"github.com/pkg/errors"
)

// ResumeOrchestrations re-runs instances left running by a crash or restart.
// Replaying from durable history makes the re-run idempotent, so sweeping an
// instance that is still actively progressing is harmless.
type ResumeOrchestrations struct {
	instances      domain.InstanceRepository
	eventPublisher events.Publisher
	runner         InstanceRunner
	staleAfter     time.Duration
}

// NewResumeOrchestrations creates a new ResumeOrchestrations use case
func NewResumeOrchestrations(
	instances domain.InstanceRepository,
	eventPublisher events.Publisher,
	runner InstanceRunner,
	staleAfter time.Duration,
) *ResumeOrchestrations {
	return &ResumeOrchestrations{
		instances:      instances,
		eventPublisher: eventPublisher,
		runner:         runner,
		staleAfter:     staleAfter,
	}
}

// Execute re-runs every running instance not updated within the stale
// window and returns how many were swept
func (uc *ResumeOrchestrations) Execute(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestration.resume_sweep")
	defer span.End()

	cutoff := time.Now().Add(-uc.staleAfter)

	stale, err := uc.instances.FindRunningBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find stale orchestration instances")
	}

	resumed := 0
	for _, instance := range stale {
		event := events.NewEvent(instance.ID, events.OrchestrationResumedEvent, domain.OrchestrationResumedData{
			InstanceID: instance.ID,
			ResumedAt:  time.Now(),
		}).WithCorrelationID(instance.ID)

		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			// Skip this one; it stays running and the next sweep retries.
			continue
		}

		if _, err := uc.runner.Execute(ctx, instance.ID); err != nil {
			// A re-run that exhausted its retries has already failed the
			// instance terminally. Any other error leaves it running for
			// the next sweep.
			continue
		}
		resumed++
	}

	telemetry.RecordCounter(ctx, "orchestrations_resumed_total", "Orchestrations re-run by the resume sweep", int64(resumed))

	return resumed, nil
}
