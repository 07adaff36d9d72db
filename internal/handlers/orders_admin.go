package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/fulfillment"
	"github.com/veloracart/velora/internal/services"
)

type adminOrderResponse struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	UserID         string     `json:"user_id"`
	CustomerName   string     `json:"customer_name,omitempty"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	ItemName       string     `json:"item_name"`
	PriceCents     int        `json:"price_cents"`
	DeliveryStatus string     `json:"delivery_status"`
	ETA            *time.Time `json:"eta,omitempty"`
	CodeIssued     bool       `json:"code_issued"`
	OrderedAt      time.Time  `json:"ordered_at"`
}

// ListOrders returns the full fulfillment dashboard.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.viewService.AdminOrders(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to build admin order view", "error", err)
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}

	response := make([]adminOrderResponse, 0, len(views))
	for _, view := range views {
		response = append(response, adminOrderResponse{
			ID:             view.Order.ID.String(),
			Reference:      view.Order.Reference,
			UserID:         view.Order.UserID,
			CustomerName:   view.CustomerName,
			Email:          view.Order.Email,
			Phone:          view.Order.Phone,
			Address:        view.Order.Address,
			ItemName:       view.Order.ItemName,
			PriceCents:     view.Order.PriceCents,
			DeliveryStatus: string(view.Order.DeliveryStatus),
			ETA:            view.Order.ETA,
			CodeIssued:     view.CodeIssued,
			OrderedAt:      view.Order.OrderedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// UpdateOrderStatus applies a dashboard status decision to an order.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
		ETA    string `json:"eta,omitempty"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.adminOrderService.SetDeliveryStatus(ctx, services.SetDeliveryStatusInput{
		OrderID: orderID,
		Status:  body.Status,
		ETAText: body.ETA,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, services.ErrETARequired), errors.Is(err, fulfillment.ErrInvalidETA):
			http.Error(w, "A valid ETA is required to mark an order on the way", http.StatusBadRequest)
		case errors.Is(err, db.ErrETAAlreadyCommitted), errors.Is(err, fulfillment.ErrETAAlreadySet):
			http.Error(w, "ETA already set for this order", http.StatusConflict)
		case errors.Is(err, db.ErrInvalidStatusTransition):
			http.Error(w, "Invalid status transition", http.StatusConflict)
		default:
			h.loggerFromContext(ctx).Error("failed to update order status", "error", err, "order_id", orderID)
			http.Error(w, "Failed to update order", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":              order.ID.String(),
		"delivery_status": string(order.DeliveryStatus),
		"eta":             order.ETA,
	})
}

// DeleteOrder removes a delivered order record from the dashboard.
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	// Empty requester: admin deletes are not ownership-checked.
	if err := h.adminOrderService.DeleteOrder(ctx, orderID, "", ""); err != nil {
		h.respondDeliveryError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
