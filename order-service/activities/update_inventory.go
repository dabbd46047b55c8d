package activities

import (
	"context"
	"encoding/json"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/pkg/errors"
)

// UpdateInventory commits a previously reserved quantity against stock
type UpdateInventory struct {
	sleeper domain.Sleeper
}

// NewUpdateInventory creates a new UpdateInventory activity
func NewUpdateInventory(sleeper domain.Sleeper) *UpdateInventory {
	return &UpdateInventory{
		sleeper: sleeper,
	}
}

// Name returns the registered activity name
func (a *UpdateInventory) Name() string {
	return domain.ActivityUpdateInventory
}

// Execute commits the reservation identified by the request id
func (a *UpdateInventory) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var req domain.InventoryRequest
	if err := domain.DecodeMessage(input, &req); err != nil {
		return nil, errors.Wrap(err, "invalid inventory request")
	}

	if req.RequestID == "" {
		return nil, errors.New("request id is required")
	}

	if err := a.sleeper.Sleep(ctx, updateInventoryLatency); err != nil {
		return nil, err
	}

	return domain.EncodeMessage("Inventory updated.")
}
