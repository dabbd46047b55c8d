package activities

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/pkg/errors"
)

// Simulated integration latencies. These stand in for the external systems
// the activities would call in a real deployment.
const (
	reserveInventoryLatency = 5 * time.Second
	updateInventoryLatency  = 5 * time.Second
	processPaymentLatency   = 7 * time.Second
	notifyCustomerLatency   = 2 * time.Second
)

// defaultAvailableStock is the stock level assumed for every item
const defaultAvailableStock = 100

// ReserveInventory checks whether the requested quantity is in stock and
// places a hold on it. A shortage is reported as Success=false, never as
// an error.
type ReserveInventory struct {
	sleeper   domain.Sleeper
	available int
}

// NewReserveInventory creates a new ReserveInventory activity
func NewReserveInventory(sleeper domain.Sleeper) *ReserveInventory {
	return &ReserveInventory{
		sleeper:   sleeper,
		available: defaultAvailableStock,
	}
}

// WithAvailableStock overrides the simulated stock level
func (a *ReserveInventory) WithAvailableStock(available int) *ReserveInventory {
	a.available = available
	return a
}

// Name returns the registered activity name
func (a *ReserveInventory) Name() string {
	return domain.ActivityReserveInventory
}

// Execute reserves stock for the requested item
func (a *ReserveInventory) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var req domain.InventoryRequest
	if err := domain.DecodeMessage(input, &req); err != nil {
		return nil, errors.Wrap(err, "invalid inventory request")
	}

	if req.RequestID == "" {
		return nil, errors.New("request id is required")
	}

	if err := a.sleeper.Sleep(ctx, reserveInventoryLatency); err != nil {
		return nil, err
	}

	if req.Quantity > a.available {
		return domain.EncodeMessage(domain.InventoryResult{Success: false})
	}

	return domain.EncodeMessage(domain.InventoryResult{
		Success: true,
		OrderPayload: &domain.OrderPayload{
			OrderName: req.ItemName,
			TotalCost: 5,
			Quantity:  req.Quantity,
		},
	})
}
