package events

import (
	"testing"

	"github.com/orderflow/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		pattern Topic
		matches bool
	}{
		{name: "exact match", topic: "orchestration.started", pattern: "orchestration.started", matches: true},
		{name: "exact mismatch", topic: "orchestration.started", pattern: "orchestration.completed", matches: false},
		{name: "single segment wildcard", topic: "orchestration.started", pattern: "orchestration.*", matches: true},
		{name: "wildcard does not span segments", topic: "order.processing.requested", pattern: "order.*", matches: false},
		{name: "hash matches everything", topic: "customer.notified", pattern: "#", matches: true},
		{name: "hash prefix", topic: "order.processing.requested", pattern: "#requested", matches: true},
		{name: "hash suffix", topic: "order.processing.requested", pattern: "order.#", matches: true},
		{name: "hash contains", topic: "order.processing.requested", pattern: "#processing#", matches: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.topic.Matches(tt.pattern))
		})
	}
}

func TestNewEvent(t *testing.T) {
	aggregateID := models.GenerateUUID()

	event := NewEvent(aggregateID, OrchestrationStartedEvent, map[string]string{"k": "v"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, aggregateID, event.AggregateID)
	assert.Equal(t, OrchestrationStartedEvent, event.EventType)
	assert.Equal(t, Topic(OrchestrationStartedEvent), event.Topic)
	assert.Equal(t, "1.0", event.Version)
	assert.False(t, event.Timestamp.IsZero())

	correlationID := models.GenerateUUID()
	event.WithCorrelationID(correlationID)
	assert.Equal(t, correlationID, event.CorrelationID)
}

func TestMetadata_Set(t *testing.T) {
	t.Run("writes into an allocated map", func(t *testing.T) {
		m := make(Metadata)
		m.Set("k", "v")

		v, ok := m.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("drops writes to a nil map", func(t *testing.T) {
		var m Metadata
		m.Set("k", "v")

		assert.False(t, m.Has("k"))
	})

	t.Run("WithMetadata allocates before writing", func(t *testing.T) {
		event := &Event{}
		event.WithMetadata("k", "v")

		v, ok := event.Metadata.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})
}

func TestEvent_UnmarshalPayload(t *testing.T) {
	type payload struct {
		Message string `json:"message"`
	}

	t.Run("same type assigns directly", func(t *testing.T) {
		event := NewEvent(models.GenerateUUID(), CustomerNotifiedEvent, payload{Message: "hi"})

		var got payload
		require.NoError(t, event.UnmarshalPayload(&got))
		assert.Equal(t, "hi", got.Message)
	})

	t.Run("raw bytes round-trip through json", func(t *testing.T) {
		event := NewEvent(models.GenerateUUID(), CustomerNotifiedEvent, []byte(`{"message":"hi"}`))

		var got payload
		require.NoError(t, event.UnmarshalPayload(&got))
		assert.Equal(t, "hi", got.Message)
	})

	t.Run("map payloads decode into structs", func(t *testing.T) {
		event := NewEvent(models.GenerateUUID(), CustomerNotifiedEvent, map[string]interface{}{"message": "hi"})

		var got payload
		require.NoError(t, event.UnmarshalPayload(&got))
		assert.Equal(t, "hi", got.Message)
	})

	t.Run("rejects non-pointer receivers", func(t *testing.T) {
		event := NewEvent(models.GenerateUUID(), CustomerNotifiedEvent, payload{})

		var got payload
		assert.ErrorIs(t, event.UnmarshalPayload(got), ErrInvalidReceiver)
	})
}
