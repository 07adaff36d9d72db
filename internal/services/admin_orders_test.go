package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/fulfillment"
)

type fakeAdminOrderStore struct {
	orders map[uuid.UUID]*db.Order

	setStatusErr error
	onTheWayErr  error
	deleteErr    error
	deleted      []uuid.UUID
}

func newFakeAdminOrderStore(orders ...*db.Order) *fakeAdminOrderStore {
	store := &fakeAdminOrderStore{orders: map[uuid.UUID]*db.Order{}}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeAdminOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeAdminOrderStore) SetStatus(_ context.Context, orderID uuid.UUID, status db.DeliveryStatus) error {
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrOrderNotFound
	}
	order.DeliveryStatus = status
	return nil
}

func (f *fakeAdminOrderStore) SetOnTheWay(_ context.Context, orderID uuid.UUID, eta time.Time) error {
	if f.onTheWayErr != nil {
		return f.onTheWayErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrOrderNotFound
	}
	if order.ETA != nil {
		return db.ErrETAAlreadyCommitted
	}
	order.DeliveryStatus = db.StatusOnTheWay
	order.ETA = &eta
	return nil
}

func (f *fakeAdminOrderStore) Delete(_ context.Context, orderID uuid.UUID, ownerID, ownerEmail string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrOrderNotFound
	}
	if ownerID != "" && !order.OwnedBy(ownerID, ownerEmail) {
		return db.ErrOrderNotOwned
	}
	if order.DeliveryStatus != db.StatusDelivered {
		return db.ErrOrderNotDelivered
	}
	delete(f.orders, orderID)
	f.deleted = append(f.deleted, orderID)
	return nil
}

func pendingOrder() *db.Order {
	return &db.Order{
		ID:             uuid.New(),
		Reference:      "ORD-20260829-ABC12",
		UserID:         "user-1",
		DeliveryStatus: db.StatusPending,
	}
}

func TestSetDeliveryStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		from       db.DeliveryStatus
		to         string
		etaText    string
		wantErr    error
		wantStatus db.DeliveryStatus
	}{
		{
			name:       "approve pending",
			from:       db.StatusPending,
			to:         "approved",
			wantStatus: db.StatusApproved,
		},
		{
			name:       "reject pending",
			from:       db.StatusPending,
			to:         "rejected",
			wantStatus: db.StatusRejected,
		},
		{
			name:       "dispatch approved with eta",
			from:       db.StatusApproved,
			to:         "on the way",
			etaText:    "45 minutes",
			wantStatus: db.StatusOnTheWay,
		},
		{
			name:    "dispatch requires eta",
			from:    db.StatusApproved,
			to:      "on the way",
			etaText: "",
			wantErr: ErrETARequired,
		},
		{
			name:    "dispatch rejects gibberish eta",
			from:    db.StatusApproved,
			to:      "on the way",
			etaText: "soonish",
			wantErr: fulfillment.ErrInvalidETA,
		},
		{
			name:    "delivered is unreachable by hand",
			from:    db.StatusOnTheWay,
			to:      "delivered",
			wantErr: db.ErrInvalidStatusTransition,
		},
		{
			name:    "delivered orders are frozen",
			from:    db.StatusDelivered,
			to:      "pending",
			wantErr: db.ErrInvalidStatusTransition,
		},
		{
			name:    "unknown status",
			from:    db.StatusPending,
			to:      "teleported",
			wantErr: db.ErrInvalidStatusTransition,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := pendingOrder()
			order.DeliveryStatus = tt.from
			store := newFakeAdminOrderStore(order)
			svc := NewAdminOrderService(store, testLogger())

			updated, err := svc.SetDeliveryStatus(context.Background(), SetDeliveryStatusInput{
				OrderID: order.ID,
				Status:  tt.to,
				ETAText: tt.etaText,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.DeliveryStatus != tt.wantStatus {
				t.Fatalf("expected status %q, got %q", tt.wantStatus, updated.DeliveryStatus)
			}
		})
	}
}

func TestSetDeliveryStatusCommitsETAOnce(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	order.DeliveryStatus = db.StatusApproved
	store := newFakeAdminOrderStore(order)
	svc := NewAdminOrderService(store, testLogger())

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	updated, err := svc.SetDeliveryStatus(context.Background(), SetDeliveryStatusInput{
		OrderID: order.ID,
		Status:  "on the way",
		ETAText: "2 days",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := now.Add(48 * time.Hour)
	if updated.ETA == nil || !updated.ETA.Equal(want) {
		t.Fatalf("expected ETA %v, got %v", want, updated.ETA)
	}
}

func TestSetDeliveryStatusRejectsSecondETA(t *testing.T) {
	t.Parallel()

	eta := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	order := pendingOrder()
	order.DeliveryStatus = db.StatusApproved
	order.ETA = &eta
	store := newFakeAdminOrderStore(order)
	svc := NewAdminOrderService(store, testLogger())

	_, err := svc.SetDeliveryStatus(context.Background(), SetDeliveryStatusInput{
		OrderID: order.ID,
		Status:  "on the way",
		ETAText: "1 day",
	})
	if !errors.Is(err, fulfillment.ErrETAAlreadySet) {
		t.Fatalf("expected ErrETAAlreadySet, got %v", err)
	}
	if !errors.Is(err, db.ErrInvalidStatusTransition) {
		t.Fatalf("expected the transition sentinel to wrap the rejection, got %v", err)
	}

	kept, _ := store.GetByID(context.Background(), order.ID)
	if !kept.ETA.Equal(eta) {
		t.Fatalf("expected the committed ETA to survive, got %v", kept.ETA)
	}
}

func TestDeleteOrderOnlyDelivered(t *testing.T) {
	t.Parallel()

	delivered := pendingOrder()
	delivered.DeliveryStatus = db.StatusDelivered
	pending := pendingOrder()
	store := newFakeAdminOrderStore(delivered, pending)
	svc := NewAdminOrderService(store, testLogger())

	if err := svc.DeleteOrder(context.Background(), delivered.ID, "", ""); err != nil {
		t.Fatalf("unexpected error deleting delivered order: %v", err)
	}

	err := svc.DeleteOrder(context.Background(), pending.ID, "", "")
	if !errors.Is(err, db.ErrOrderNotDelivered) {
		t.Fatalf("expected ErrOrderNotDelivered, got %v", err)
	}
}

func TestDeleteOrderGuestMatchesByEmail(t *testing.T) {
	t.Parallel()

	guest := &db.Order{
		ID:             uuid.New(),
		UserID:         "guest",
		Email:          "g@example.com",
		DeliveryStatus: db.StatusDelivered,
	}
	store := newFakeAdminOrderStore(guest)
	svc := NewAdminOrderService(store, testLogger())

	err := svc.DeleteOrder(context.Background(), guest.ID, "user-2", "other@example.com")
	if !errors.Is(err, db.ErrOrderNotOwned) {
		t.Fatalf("expected ErrOrderNotOwned for a stranger, got %v", err)
	}

	if err := svc.DeleteOrder(context.Background(), guest.ID, "user-1", "g@example.com"); err != nil {
		t.Fatalf("expected email-matched delete to succeed, got %v", err)
	}
}
