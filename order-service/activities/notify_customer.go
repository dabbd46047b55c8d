package activities

import (
	"context"
	"encoding/json"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// NotifyCustomer delivers a message to the customer by publishing it on the
// notification topic
type NotifyCustomer struct {
	sleeper        domain.Sleeper
	eventPublisher events.Publisher
}

// NewNotifyCustomer creates a new NotifyCustomer activity
func NewNotifyCustomer(sleeper domain.Sleeper, eventPublisher events.Publisher) *NotifyCustomer {
	return &NotifyCustomer{
		sleeper:        sleeper,
		eventPublisher: eventPublisher,
	}
}

// Name returns the registered activity name
func (a *NotifyCustomer) Name() string {
	return domain.ActivityNotifyCustomer
}

// Execute publishes the notification message
func (a *NotifyCustomer) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var notification domain.Notification
	if err := domain.DecodeMessage(input, &notification); err != nil {
		return nil, errors.Wrap(err, "invalid notification")
	}

	if notification.Message == "" {
		return nil, errors.New("notification message is required")
	}

	if err := a.sleeper.Sleep(ctx, notifyCustomerLatency); err != nil {
		return nil, err
	}

	event := events.NewEvent(models.GenerateUUID(), events.CustomerNotifiedEvent, notification)
	if err := a.eventPublisher.Publish(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to publish customer notification")
	}

	return domain.EncodeMessage("Notified customer.")
}
