package application

import (
	"context"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// GetOrderStatusQuery identifies the orchestration instance to inspect
type GetOrderStatusQuery struct {
	InstanceID string
}

// OrderStatusResponse is the polled view of an orchestration instance
type OrderStatusResponse struct {
	InstanceID   string              `json:"instance_id"`
	Status       string              `json:"status"`
	CustomStatus string              `json:"custom_status,omitempty"`
	Result       *domain.OrderResult `json:"result,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// GetOrderStatus reads the current state of an orchestration instance
type GetOrderStatus struct {
	instances domain.InstanceRepository
}

// NewGetOrderStatus creates a new GetOrderStatus use case
func NewGetOrderStatus(instances domain.InstanceRepository) *GetOrderStatus {
	return &GetOrderStatus{
		instances: instances,
	}
}

// Execute returns the status view for the given instance id
func (uc *GetOrderStatus) Execute(ctx context.Context, query GetOrderStatusQuery) (*OrderStatusResponse, error) {
	if query.InstanceID == "" {
		return nil, errors.New("instance id is required")
	}

	instanceID, err := models.NewID(query.InstanceID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid instance id")
	}

	instance, err := uc.instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find orchestration instance")
	}

	if instance == nil {
		return nil, ErrInstanceNotFound
	}

	return &OrderStatusResponse{
		InstanceID:   instance.ID.String(),
		Status:       string(instance.Status),
		CustomStatus: instance.CustomStatus,
		Result:       instance.Result,
		Error:        instance.FailureReason,
	}, nil
}
