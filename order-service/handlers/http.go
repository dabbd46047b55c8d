package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderflow/order-system/order-service/application"
	"github.com/pkg/errors"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	startOrder *application.StartOrderProcessing
	getStatus  *application.GetOrderStatus
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	startOrder *application.StartOrderProcessing,
	getStatus *application.GetOrderStatus,
) *OrderHandlers {
	return &OrderHandlers{
		startOrder: startOrder,
		getStatus:  getStatus,
	}
}

// startOrderResponse adds the polling URL to the use case acknowledgement
type startOrderResponse struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
	StatusURL  string `json:"status_url"`
}

// StartOrder handles order submission requests
func (h *OrderHandlers) StartOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.StartOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.startOrder.Execute(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, application.ErrInvalidOrder) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(startOrderResponse{
		InstanceID: response.InstanceID,
		Status:     response.Status,
		StatusURL:  "/api/v1/orders/" + response.InstanceID,
	})
}

// GetOrderStatus handles status polling requests
func (h *OrderHandlers) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "id")
	if instanceID == "" {
		http.Error(w, "Instance ID is required", http.StatusBadRequest)
		return
	}

	query := application.GetOrderStatusQuery{
		InstanceID: instanceID,
	}

	response, err := h.getStatus.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrInstanceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.StartOrder)
		r.Get("/{id}", h.GetOrderStatus)
	})
}
