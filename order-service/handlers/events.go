package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderflow/order-system/order-service/application"
	"github.com/orderflow/order-system/shared/events"
	"github.com/pkg/errors"
)

// OrderEventHandlers handles order events arriving on the queue
type OrderEventHandlers struct {
	startOrder *application.StartOrderProcessing
}

// NewOrderEventHandlers creates new order event handlers
func NewOrderEventHandlers(startOrder *application.StartOrderProcessing) *OrderEventHandlers {
	return &OrderEventHandlers{
		startOrder: startOrder,
	}
}

// Handle implements the events.EventHandler interface
func (h *OrderEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderProcessingRequestedEvent:
		return h.HandleOrderProcessingRequested(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *OrderEventHandlers) HandlerID() string {
	return "order-service-event-handler"
}

// HandleOrderProcessingRequested starts an orchestration for an order
// submitted through the queue
func (h *OrderEventHandlers) HandleOrderProcessingRequested(ctx context.Context, event *events.Event) error {
	var cmd application.StartOrderCommand
	if err := h.parseEventData(event, &cmd); err != nil {
		return errors.Wrap(err, "failed to parse order processing request")
	}

	if _, err := h.startOrder.Execute(ctx, cmd); err != nil {
		if errors.Is(err, application.ErrInvalidOrder) {
			// A bad payload never becomes valid, so don't let the queue retry it.
			fmt.Printf("Rejected invalid order %q: %v\n", cmd.OrderName, err)
			return nil
		}
		return err
	}

	return nil
}

// parseEventData parses event data into the specified struct
func (h *OrderEventHandlers) parseEventData(event *events.Event, target interface{}) error {
	jsonData, err := json.Marshal(event.Data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event data")
	}

	if err := json.Unmarshal(jsonData, target); err != nil {
		return errors.Wrap(err, "failed to unmarshal event data")
	}

	return nil
}
