package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/services"
)

type customerOrderResponse struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	ItemName       string     `json:"item_name"`
	ImageURL       string     `json:"image_url,omitempty"`
	PriceCents     int        `json:"price_cents"`
	DeliveryStatus string     `json:"delivery_status"`
	ETA            *time.Time `json:"eta,omitempty"`
	Countdown      string     `json:"countdown,omitempty"`
	Code           string     `json:"code,omitempty"`
	CanRequestCode bool       `json:"can_request_code"`
	OrderedAt      time.Time  `json:"ordered_at"`
}

// ListMyOrders returns the signed-in customer's order history with code
// state and ETA countdown.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	views, err := h.viewService.CustomerOrders(ctx, sess.UserID, sess.Email)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list customer orders", "error", err)
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}

	response := make([]customerOrderResponse, 0, len(views))
	for _, view := range views {
		response = append(response, customerOrderResponse{
			ID:             view.Order.ID.String(),
			Reference:      view.Order.Reference,
			ItemName:       view.Order.ItemName,
			ImageURL:       view.Order.ImageURL,
			PriceCents:     view.Order.PriceCents,
			DeliveryStatus: string(view.Order.DeliveryStatus),
			ETA:            view.Order.ETA,
			Countdown:      view.Countdown,
			Code:           view.Code,
			CanRequestCode: view.CanRequestCode,
			OrderedAt:      view.Order.OrderedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// RequestDeliveryCode mints the delivery code for one of the customer's
// on-the-way orders.
func (h *Handlers) RequestDeliveryCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	code, err := h.deliveryService.RequestCode(ctx, orderID, sess.UserID, sess.Email)
	if err != nil {
		h.respondDeliveryError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"order_id": orderID.String(),
		"code":     code.Code,
	})
}

// RedeemDeliveryCode burns a submitted code and marks the matching order
// delivered.
func (h *Handlers) RedeemDeliveryCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.deliveryService.Redeem(ctx, body.Code, sess.UserID)
	if err != nil {
		h.respondDeliveryError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"order_id":        order.ID.String(),
		"reference":       order.Reference,
		"delivery_status": string(order.DeliveryStatus),
	})
}

// DeleteMyOrder removes one of the customer's delivered orders.
func (h *Handlers) DeleteMyOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}

	if err := h.adminOrderService.DeleteOrder(ctx, orderID, sess.UserID, sess.Email); err != nil {
		h.respondDeliveryError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateProfile updates the signed-in customer's contact details.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userStore.UpdateContact(ctx, sess.UserID, body.Phone, body.Address); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(ctx).Error("failed to update contact details", "error", err)
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) respondDeliveryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, db.ErrOrderNotOwned):
		// Indistinguishable from not-found so order IDs cannot be probed.
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, db.ErrCodeNotFound):
		http.Error(w, "Invalid or expired code", http.StatusNotFound)
	case errors.Is(err, db.ErrCodeAlreadyIssued):
		http.Error(w, "A valid code already exists for this order", http.StatusConflict)
	case errors.Is(err, db.ErrOrderNotOnTheWay):
		http.Error(w, "Order is not on the way", http.StatusConflict)
	case errors.Is(err, db.ErrOrderNotDelivered):
		http.Error(w, "Only delivered orders can be removed", http.StatusConflict)
	case errors.Is(err, services.ErrETARequired):
		http.Error(w, "An ETA is required", http.StatusBadRequest)
	default:
		h.loggerFromContext(r.Context()).Error("delivery operation failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
