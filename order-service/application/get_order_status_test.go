package application

import (
	"context"
	"testing"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/order-service/infrastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrderStatus_Execute(t *testing.T) {
	ctx := context.Background()

	newStoredInstance := func(t *testing.T, instances *infrastructure.MemoryInstanceRepository) *domain.OrchestrationInstance {
		t.Helper()
		instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder,
			domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1})
		require.NoError(t, err)
		instance.ClearEvents()
		require.NoError(t, instances.Save(ctx, instance))
		return instance
	}

	t.Run("running instance", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		instance := newStoredInstance(t, instances)
		uc := NewGetOrderStatus(instances)

		response, err := uc.Execute(ctx, GetOrderStatusQuery{InstanceID: instance.ID.String()})

		require.NoError(t, err)
		assert.Equal(t, instance.ID.String(), response.InstanceID)
		assert.Equal(t, "running", response.Status)
		assert.Empty(t, response.CustomStatus)
		assert.Nil(t, response.Result)
		assert.Empty(t, response.Error)
	})

	t.Run("completed instance", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		instance := newStoredInstance(t, instances)
		require.NoError(t, instance.Complete(domain.StatusOrderPlaced, domain.OrderResult{Processed: true}))
		instance.ClearEvents()
		require.NoError(t, instances.Save(ctx, instance))

		uc := NewGetOrderStatus(instances)
		response, err := uc.Execute(ctx, GetOrderStatusQuery{InstanceID: instance.ID.String()})

		require.NoError(t, err)
		assert.Equal(t, "completed", response.Status)
		assert.Equal(t, "Order placed successfully.", response.CustomStatus)
		require.NotNil(t, response.Result)
		assert.True(t, response.Result.Processed)
	})

	t.Run("failed instance carries the failure reason", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		instance := newStoredInstance(t, instances)
		require.NoError(t, instance.Fail("process_payment failed after 3 attempts"))
		instance.ClearEvents()
		require.NoError(t, instances.Save(ctx, instance))

		uc := NewGetOrderStatus(instances)
		response, err := uc.Execute(ctx, GetOrderStatusQuery{InstanceID: instance.ID.String()})

		require.NoError(t, err)
		assert.Equal(t, "failed", response.Status)
		assert.Empty(t, response.CustomStatus)
		assert.Nil(t, response.Result)
		assert.Contains(t, response.Error, "process_payment")
	})

	t.Run("empty instance id", func(t *testing.T) {
		uc := NewGetOrderStatus(infrastructure.NewMemoryInstanceRepository())

		_, err := uc.Execute(ctx, GetOrderStatusQuery{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance id is required")
	})

	t.Run("malformed instance id", func(t *testing.T) {
		uc := NewGetOrderStatus(infrastructure.NewMemoryInstanceRepository())

		_, err := uc.Execute(ctx, GetOrderStatusQuery{InstanceID: "not-a-uuid"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid instance id")
	})

	t.Run("unknown instance", func(t *testing.T) {
		uc := NewGetOrderStatus(infrastructure.NewMemoryInstanceRepository())

		_, err := uc.Execute(ctx, GetOrderStatusQuery{InstanceID: "550e8400-e29b-41d4-a716-446655440000"})

		assert.ErrorIs(t, err, ErrInstanceNotFound)
	})
}
