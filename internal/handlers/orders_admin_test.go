package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/services"
)

type stubAdminOrderStore struct {
	order       *db.Order
	onTheWayErr error
}

func (s *stubAdminOrderStore) GetByID(context.Context, uuid.UUID) (*db.Order, error) {
	if s.order == nil {
		return nil, db.ErrOrderNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubAdminOrderStore) SetStatus(_ context.Context, _ uuid.UUID, status db.DeliveryStatus) error {
	s.order.DeliveryStatus = status
	return nil
}

func (s *stubAdminOrderStore) SetOnTheWay(context.Context, uuid.UUID, time.Time) error {
	return s.onTheWayErr
}

func (s *stubAdminOrderStore) Delete(context.Context, uuid.UUID, string, string) error {
	return nil
}

func TestUpdateOrderStatus_ReportsCommittedETA(t *testing.T) {
	t.Parallel()

	// The order read is stale (no ETA yet), so the guarded update is what
	// catches the second dispatch.
	store := &stubAdminOrderStore{
		order:       &db.Order{ID: uuid.New(), DeliveryStatus: db.StatusApproved},
		onTheWayErr: db.ErrETAAlreadyCommitted,
	}
	logger := slog.New(slog.DiscardHandler)
	h := &Handlers{
		adminOrderService: services.NewAdminOrderService(store, logger),
		logger:            logger,
	}

	body := strings.NewReader(`{"status":"on the way","eta":"1 day"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/api/orders/"+store.order.ID.String()+"/status", body)
	req = mux.SetURLVars(req, map[string]string{"id": store.order.ID.String()})
	rec := httptest.NewRecorder()

	h.UpdateOrderStatus(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ETA already set") {
		t.Fatalf("expected an ETA-specific message, got %q", rec.Body.String())
	}
}

func TestUpdateOrderStatus_GenericInvalidTransitionKeepsItsMessage(t *testing.T) {
	t.Parallel()

	store := &stubAdminOrderStore{
		order: &db.Order{ID: uuid.New(), DeliveryStatus: db.StatusPending},
	}
	logger := slog.New(slog.DiscardHandler)
	h := &Handlers{
		adminOrderService: services.NewAdminOrderService(store, logger),
		logger:            logger,
	}

	body := strings.NewReader(`{"status":"delivered"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/api/orders/"+store.order.ID.String()+"/status", body)
	req = mux.SetURLVars(req, map[string]string{"id": store.order.ID.String()})
	rec := httptest.NewRecorder()

	h.UpdateOrderStatus(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid status transition") {
		t.Fatalf("expected the generic transition message, got %q", rec.Body.String())
	}
}
