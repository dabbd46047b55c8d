package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInstanceRepository(t *testing.T) {
	ctx := context.Background()

	newInstance := func(t *testing.T) *domain.OrchestrationInstance {
		t.Helper()
		instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder,
			domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1})
		require.NoError(t, err)
		instance.ClearEvents()
		return instance
	}

	t.Run("save and find", func(t *testing.T) {
		repo := NewMemoryInstanceRepository()
		instance := newInstance(t)

		require.NoError(t, repo.Save(ctx, instance))

		found, err := repo.FindByID(ctx, instance.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, instance.ID, found.ID)
		assert.Equal(t, instance.Input, found.Input)
	})

	t.Run("find unknown id returns nil", func(t *testing.T) {
		repo := NewMemoryInstanceRepository()

		found, err := repo.FindByID(ctx, "550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("stored state is isolated from later mutation", func(t *testing.T) {
		repo := NewMemoryInstanceRepository()
		instance := newInstance(t)
		require.NoError(t, repo.Save(ctx, instance))

		require.NoError(t, instance.Fail("mutated after save"))

		found, err := repo.FindByID(ctx, instance.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InstanceStatusRunning, found.Status)
	})

	t.Run("find running before cutoff", func(t *testing.T) {
		repo := NewMemoryInstanceRepository()

		stale := newInstance(t)
		stale.Timestamps.UpdatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, repo.Save(ctx, stale))

		fresh := newInstance(t)
		require.NoError(t, repo.Save(ctx, fresh))

		finished := newInstance(t)
		require.NoError(t, finished.Complete(domain.StatusOrderPlaced, domain.OrderResult{Processed: true}))
		finished.ClearEvents()
		finished.Timestamps.UpdatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, repo.Save(ctx, finished))

		found, err := repo.FindRunningBefore(ctx, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, stale.ID, found[0].ID)
	})
}

func TestMemoryHistoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("append preserves order", func(t *testing.T) {
		store := NewMemoryHistoryStore()
		instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder,
			domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1})
		require.NoError(t, err)

		first := domain.NewFailedEntry(instance.ID, 0, domain.ActivityReserveInventory, 1, nil, assert.AnError)
		second := domain.NewCompletedEntry(instance.ID, 0, domain.ActivityReserveInventory, 2, nil, json.RawMessage(`{"success":true}`))
		third := domain.NewCompletedEntry(instance.ID, 1, domain.ActivityProcessPayment, 1, nil, json.RawMessage(`"Payment processed."`))

		require.NoError(t, store.Append(ctx, instance.ID, first, second))
		require.NoError(t, store.Append(ctx, instance.ID, third))

		entries, err := store.Load(ctx, instance.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, first.ID, entries[0].ID)
		assert.Equal(t, second.ID, entries[1].ID)
		assert.Equal(t, third.ID, entries[2].ID)
	})

	t.Run("load of an unknown instance is empty", func(t *testing.T) {
		store := NewMemoryHistoryStore()

		entries, err := store.Load(ctx, "550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("loaded slice is detached from later appends", func(t *testing.T) {
		store := NewMemoryHistoryStore()
		instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder,
			domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1})
		require.NoError(t, err)

		require.NoError(t, store.Append(ctx, instance.ID,
			domain.NewCompletedEntry(instance.ID, 0, domain.ActivityReserveInventory, 1, nil, nil)))

		entries, err := store.Load(ctx, instance.ID)
		require.NoError(t, err)

		require.NoError(t, store.Append(ctx, instance.ID,
			domain.NewCompletedEntry(instance.ID, 1, domain.ActivityProcessPayment, 1, nil, nil)))

		assert.Len(t, entries, 1)
	})
}
