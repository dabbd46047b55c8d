package domain

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Activity names
const (
	ActivityReserveInventory = "reserve_inventory"
	ActivityUpdateInventory  = "update_inventory"
	ActivityProcessPayment   = "process_payment"
	ActivityNotifyCustomer   = "notify_customer"
)

// ErrActivityNotFound indicates an activity name with no registered implementation
var ErrActivityNotFound = errors.New("activity not found")

// Activity is a single named, side-effecting, retryable unit of work. Inputs
// and outputs cross the boundary in wire form so recorded outcomes can be
// replayed without re-execution. Implementations must be idempotent per
// request id since invocation is at-least-once.
type Activity interface {
	Name() string
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// ActivityRegistry resolves activity names to implementations
type ActivityRegistry struct {
	activities map[string]Activity
}

// NewActivityRegistry creates a registry with the given activities
func NewActivityRegistry(activities ...Activity) *ActivityRegistry {
	r := &ActivityRegistry{
		activities: make(map[string]Activity, len(activities)),
	}
	for _, a := range activities {
		r.Register(a)
	}
	return r
}

// Register adds an activity, replacing any previous one with the same name
func (r *ActivityRegistry) Register(a Activity) {
	r.activities[a.Name()] = a
}

// Get resolves an activity by name
func (r *ActivityRegistry) Get(name string) (Activity, error) {
	a, ok := r.activities[name]
	if !ok {
		return nil, errors.Wrap(ErrActivityNotFound, name)
	}
	return a, nil
}
