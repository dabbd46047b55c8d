package domain

import (
	"fmt"

	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// DefaultCurrency is used for payment requests when the caller does not specify one
const DefaultCurrency = "USD"

// OrderPayload is the immutable input of an orchestration instance
type OrderPayload struct {
	OrderName string  `json:"order_name"`
	TotalCost float64 `json:"total_cost"`
	Quantity  int     `json:"quantity"`
}

// Validate validates the order payload
func (p OrderPayload) Validate() error {
	if p.OrderName == "" {
		return errors.New("order name is required")
	}

	if p.TotalCost <= 0 {
		return errors.New("total cost must be positive")
	}

	if p.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	return nil
}

// InventoryRequest asks the inventory activity to reserve or commit stock.
// RequestID always equals the owning instance id, which gives the activity
// a natural idempotency key.
type InventoryRequest struct {
	RequestID string `json:"request_id"`
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
}

// NewInventoryRequest derives an inventory request from an order payload
func NewInventoryRequest(instanceID models.ID, payload OrderPayload) InventoryRequest {
	return InventoryRequest{
		RequestID: instanceID.String(),
		ItemName:  payload.OrderName,
		Quantity:  payload.Quantity,
	}
}

// InventoryResult is produced by the reserve-inventory activity.
// Success=false is a valid business outcome, not an error.
type InventoryResult struct {
	Success      bool          `json:"success"`
	OrderPayload *OrderPayload `json:"order_payload"`
}

// PaymentRequest asks the payment activity to charge the customer
type PaymentRequest struct {
	RequestID     string  `json:"request_id"`
	ItemPurchased string  `json:"item_purchased"`
	PaymentAmount float64 `json:"payment_amount"`
	Currency      string  `json:"currency"`
}

// NewPaymentRequest derives a payment request from an order payload
func NewPaymentRequest(instanceID models.ID, payload OrderPayload) PaymentRequest {
	return PaymentRequest{
		RequestID:     instanceID.String(),
		ItemPurchased: payload.OrderName,
		PaymentAmount: payload.TotalCost,
		Currency:      DefaultCurrency,
	}
}

// Notification is a fire-and-forget message to the customer
type Notification struct {
	Message string `json:"message"`
}

// NewInsufficientInventoryNotification builds the shortage notification
func NewInsufficientInventoryNotification(orderName string) Notification {
	return Notification{Message: fmt.Sprintf("Insufficient inventory for %s.", orderName)}
}

// NewRefundNotification builds the compensation notification sent when the
// inventory update fails after payment
func NewRefundNotification(orderName string) Notification {
	return Notification{Message: fmt.Sprintf("Failed to process order for %s. You're now getting a refund.", orderName)}
}

// NewOrderPlacedNotification builds the success notification
func NewOrderPlacedNotification(orderName string) Notification {
	return Notification{Message: fmt.Sprintf("Order for %s placed successfully!", orderName)}
}

// OrderResult is the terminal output of an orchestration instance
type OrderResult struct {
	Processed bool `json:"processed"`
}
