package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/order-service/infrastructure"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner records which instances it was asked to run
type stubRunner struct {
	mu  sync.Mutex
	ran []models.ID
	// done receives the instance id once per run, so tests can wait for
	// the background goroutine
	done chan models.ID
}

func newStubRunner() *stubRunner {
	return &stubRunner{done: make(chan models.ID, 8)}
}

func (r *stubRunner) Execute(ctx context.Context, instanceID models.ID) (*domain.OrderResult, error) {
	r.mu.Lock()
	r.ran = append(r.ran, instanceID)
	r.mu.Unlock()

	r.done <- instanceID
	return &domain.OrderResult{Processed: true}, nil
}

func (r *stubRunner) waitForRun(t *testing.T) models.ID {
	t.Helper()

	select {
	case id := <-r.done:
		return id
	case <-time.After(time.Second):
		t.Fatal("instance run was never started")
		return ""
	}
}

func TestStartOrderProcessing_Execute(t *testing.T) {
	t.Run("accepts a valid order", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		publisher := &stubPublisher{}
		runner := newStubRunner()
		uc := NewStartOrderProcessing(instances, publisher, runner)

		response, err := uc.Execute(context.Background(), StartOrderCommand{
			OrderName: "milk",
			TotalCost: 5,
			Quantity:  1,
		})

		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, string(domain.InstanceStatusRunning), response.Status)

		instanceID, err := models.NewID(response.InstanceID)
		require.NoError(t, err)

		// The instance is durable before the caller gets its handle.
		saved, err := instances.FindByID(context.Background(), instanceID)
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1}, saved.Input)

		assert.Equal(t, []string{events.OrchestrationStartedEvent}, publisher.eventTypes())

		assert.Equal(t, instanceID, runner.waitForRun(t))
	})

	t.Run("rejects an invalid order", func(t *testing.T) {
		tests := []struct {
			name string
			cmd  StartOrderCommand
		}{
			{name: "missing name", cmd: StartOrderCommand{TotalCost: 5, Quantity: 1}},
			{name: "non-positive cost", cmd: StartOrderCommand{OrderName: "milk", TotalCost: 0, Quantity: 1}},
			{name: "zero quantity", cmd: StartOrderCommand{OrderName: "milk", TotalCost: 5}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				publisher := &stubPublisher{}
				runner := newStubRunner()
				uc := NewStartOrderProcessing(infrastructure.NewMemoryInstanceRepository(), publisher, runner)

				response, err := uc.Execute(context.Background(), tt.cmd)

				assert.ErrorIs(t, err, ErrInvalidOrder)
				assert.Nil(t, response)
				assert.Empty(t, publisher.eventTypes())
				assert.Empty(t, runner.ran)
			})
		}
	})

	t.Run("publish failure surfaces to the caller", func(t *testing.T) {
		publisher := &stubPublisher{err: assert.AnError}
		runner := newStubRunner()
		uc := NewStartOrderProcessing(infrastructure.NewMemoryInstanceRepository(), publisher, runner)

		_, err := uc.Execute(context.Background(), StartOrderCommand{
			OrderName: "milk",
			TotalCost: 5,
			Quantity:  1,
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish orchestration events")
	})
}
