package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/order-system/order-service/application"
	"github.com/orderflow/order-system/order-service/infrastructure"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventHandlers(instances *infrastructure.MemoryInstanceRepository) *OrderEventHandlers {
	startOrder := application.NewStartOrderProcessing(instances, discardPublisher{}, noopRunner{})
	return NewOrderEventHandlers(startOrder)
}

func TestOrderEventHandlers_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("starts an orchestration for a processing request", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		handlers := newEventHandlers(instances)

		event := events.NewEvent(models.GenerateUUID(), events.OrderProcessingRequestedEvent, map[string]interface{}{
			"order_name": "milk",
			"total_cost": 5,
			"quantity":   1,
		})

		require.NoError(t, handlers.Handle(ctx, event))

		running, err := instances.FindRunningBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, running, 1)
		assert.Equal(t, "milk", running[0].Input.OrderName)
		assert.Equal(t, 5.0, running[0].Input.TotalCost)
		assert.Equal(t, 1, running[0].Input.Quantity)
	})

	t.Run("drops an invalid order without erroring", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		handlers := newEventHandlers(instances)

		event := events.NewEvent(models.GenerateUUID(), events.OrderProcessingRequestedEvent, map[string]interface{}{
			"order_name": "",
			"total_cost": 5,
			"quantity":   1,
		})

		// A bad payload never becomes valid; returning nil keeps the queue
		// from redelivering it.
		assert.NoError(t, handlers.Handle(ctx, event))

		running, err := instances.FindRunningBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Empty(t, running)
	})

	t.Run("ignores unrelated event types", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		handlers := newEventHandlers(instances)

		event := events.NewEvent(models.GenerateUUID(), events.CustomerNotifiedEvent, map[string]interface{}{
			"message": "Order for milk placed successfully!",
		})

		assert.NoError(t, handlers.Handle(ctx, event))

		running, err := instances.FindRunningBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Empty(t, running)
	})
}

func TestOrderEventHandlers_HandlerID(t *testing.T) {
	handlers := newEventHandlers(infrastructure.NewMemoryInstanceRepository())

	assert.Equal(t, "order-service-event-handler", handlers.HandlerID())
}
