package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderflow/order-system/order-service/application"
	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/order-service/infrastructure"
	"github.com/orderflow/order-system/shared/events"
	"github.com/orderflow/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopRunner accepts runs without doing anything
type noopRunner struct{}

func (noopRunner) Execute(ctx context.Context, instanceID models.ID) (*domain.OrderResult, error) {
	return nil, nil
}

// discardPublisher drops published events
type discardPublisher struct{}

func (discardPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	return nil
}

func newTestRouter(instances *infrastructure.MemoryInstanceRepository) *chi.Mux {
	startOrder := application.NewStartOrderProcessing(instances, discardPublisher{}, noopRunner{})
	getStatus := application.NewGetOrderStatus(instances)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		NewOrderHandlers(startOrder, getStatus).RegisterRoutes(r)
	})
	return router
}

func TestOrderHandlers_StartOrder(t *testing.T) {
	t.Run("accepts a valid order", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		router := newTestRouter(instances)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders",
			strings.NewReader(`{"order_name":"milk","total_cost":5,"quantity":1}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		var response struct {
			InstanceID string `json:"instance_id"`
			Status     string `json:"status"`
			StatusURL  string `json:"status_url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, "running", response.Status)
		assert.Equal(t, "/api/v1/orders/"+response.InstanceID, response.StatusURL)

		instanceID, err := models.NewID(response.InstanceID)
		require.NoError(t, err)

		saved, err := instances.FindByID(context.Background(), instanceID)
		require.NoError(t, err)
		require.NotNil(t, saved)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		router := newTestRouter(infrastructure.NewMemoryInstanceRepository())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"order_name":`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an invalid order", func(t *testing.T) {
		router := newTestRouter(infrastructure.NewMemoryInstanceRepository())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders",
			strings.NewReader(`{"order_name":"milk","total_cost":0,"quantity":1}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "total cost must be positive")
	})
}

func TestOrderHandlers_GetOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the instance status", func(t *testing.T) {
		instances := infrastructure.NewMemoryInstanceRepository()
		instance, err := domain.StartOrchestration(domain.OrchestratorProcessOrder,
			domain.OrderPayload{OrderName: "milk", TotalCost: 5, Quantity: 1})
		require.NoError(t, err)
		instance.ClearEvents()
		require.NoError(t, instance.Complete(domain.StatusOrderPlaced, domain.OrderResult{Processed: true}))
		instance.ClearEvents()
		require.NoError(t, instances.Save(ctx, instance))

		router := newTestRouter(instances)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+instance.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var response application.OrderStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, instance.ID.String(), response.InstanceID)
		assert.Equal(t, "completed", response.Status)
		assert.Equal(t, "Order placed successfully.", response.CustomStatus)
		require.NotNil(t, response.Result)
		assert.True(t, response.Result.Processed)
	})

	t.Run("unknown instance returns 404", func(t *testing.T) {
		router := newTestRouter(infrastructure.NewMemoryInstanceRepository())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/550e8400-e29b-41d4-a716-446655440000", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrderHandlers_EndToEnd(t *testing.T) {
	// Full loop through the real engine with simulated activities: submit,
	// then poll until the orchestration completes.
	instances := infrastructure.NewMemoryInstanceRepository()
	history := infrastructure.NewMemoryHistoryStore()
	publisher := discardPublisher{}
	sleeper := instantSleeper{}

	registry := domain.NewActivityRegistry(
		newEchoActivity(domain.ActivityReserveInventory, `{"success":true,"order_payload":{"order_name":"milk","total_cost":5,"quantity":1}}`),
		newEchoActivity(domain.ActivityProcessPayment, `"Payment processed."`),
		newEchoActivity(domain.ActivityUpdateInventory, `"Inventory updated."`),
		newEchoActivity(domain.ActivityNotifyCustomer, `"Notified customer."`),
	)

	invoker := application.NewActivityInvoker(registry, sleeper)
	run := application.NewRunOrchestration(instances, history, invoker, publisher, domain.DefaultRetryPolicy())
	startOrder := application.NewStartOrderProcessing(instances, publisher, run)
	getStatus := application.NewGetOrderStatus(instances)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		NewOrderHandlers(startOrder, getStatus).RegisterRoutes(r)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders",
		strings.NewReader(`{"order_name":"milk","total_cost":5,"quantity":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted struct {
		StatusURL string `json:"status_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, accepted.StatusURL, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}

		var status application.OrderStatusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == string(domain.InstanceStatusCompleted) &&
			status.CustomStatus == domain.StatusOrderPlaced
	}, 2*time.Second, 10*time.Millisecond)
}

// instantSleeper skips delays in tests
type instantSleeper struct{}

func (instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// echoActivity returns a fixed output for any input
type echoActivity struct {
	name   string
	output json.RawMessage
}

func newEchoActivity(name, output string) *echoActivity {
	return &echoActivity{name: name, output: json.RawMessage(output)}
}

func (a *echoActivity) Name() string {
	return a.name
}

func (a *echoActivity) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return a.output, nil
}
