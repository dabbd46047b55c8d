package activities

import (
	"context"
	"encoding/json"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/pkg/errors"
)

// ProcessPayment charges the customer for the order
type ProcessPayment struct {
	sleeper domain.Sleeper
}

// NewProcessPayment creates a new ProcessPayment activity
func NewProcessPayment(sleeper domain.Sleeper) *ProcessPayment {
	return &ProcessPayment{
		sleeper: sleeper,
	}
}

// Name returns the registered activity name
func (a *ProcessPayment) Name() string {
	return domain.ActivityProcessPayment
}

// Execute charges the payment amount against the customer account
func (a *ProcessPayment) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var req domain.PaymentRequest
	if err := domain.DecodeMessage(input, &req); err != nil {
		return nil, errors.Wrap(err, "invalid payment request")
	}

	if req.RequestID == "" {
		return nil, errors.New("request id is required")
	}

	if req.PaymentAmount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	if err := a.sleeper.Sleep(ctx, processPaymentLatency); err != nil {
		return nil, err
	}

	return domain.EncodeMessage("Payment processed.")
}
