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

// fakeFulfillmentStore backs both the admin and delivery services with one
// in-memory state so tests can watch the coupling between code consumption and
// order delivery: redeeming deletes the code row and flips the order in the
// same step, exactly like the transactional store.
type fakeFulfillmentStore struct {
	orders map[uuid.UUID]*db.Order
	codes  map[string]*db.DeliveryCode
}

func newFakeFulfillmentStore(orders ...*db.Order) *fakeFulfillmentStore {
	store := &fakeFulfillmentStore{
		orders: map[uuid.UUID]*db.Order{},
		codes:  map[string]*db.DeliveryCode{},
	}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeFulfillmentStore) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeFulfillmentStore) SetStatus(_ context.Context, orderID uuid.UUID, status db.DeliveryStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return db.ErrOrderNotFound
	}
	if order.DeliveryStatus == db.StatusDelivered {
		return db.ErrInvalidStatusTransition
	}
	order.DeliveryStatus = status
	return nil
}

func (f *fakeFulfillmentStore) SetOnTheWay(_ context.Context, orderID uuid.UUID, eta time.Time) error {
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

func (f *fakeFulfillmentStore) Delete(_ context.Context, orderID uuid.UUID, ownerID, ownerEmail string) error {
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
	return nil
}

func (f *fakeFulfillmentStore) Issue(_ context.Context, orderID uuid.UUID, ownerID, ownerEmail string) (*db.DeliveryCode, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	if !order.OwnedBy(ownerID, ownerEmail) {
		return nil, db.ErrOrderNotOwned
	}
	if order.DeliveryStatus != db.StatusOnTheWay {
		return nil, db.ErrOrderNotOnTheWay
	}
	for _, code := range f.codes {
		if code.OrderID == orderID {
			return nil, db.ErrCodeAlreadyIssued
		}
	}
	code := &db.DeliveryCode{
		ID:        uuid.New(),
		Code:      fulfillment.NewDeliveryCode(),
		UserID:    ownerID,
		OrderID:   orderID,
		CreatedAt: time.Now(),
	}
	f.codes[code.Code] = code
	order.CustomerSeen = true
	return code, nil
}

func (f *fakeFulfillmentStore) Redeem(_ context.Context, submitted, requesterID string) (uuid.UUID, error) {
	code, ok := f.codes[submitted]
	if !ok {
		return uuid.Nil, db.ErrCodeNotFound
	}
	if code.UserID != requesterID {
		return uuid.Nil, db.ErrOrderNotOwned
	}
	order, ok := f.orders[code.OrderID]
	if !ok {
		return uuid.Nil, db.ErrOrderNotFound
	}
	if order.DeliveryStatus != db.StatusOnTheWay {
		return uuid.Nil, db.ErrOrderNotOnTheWay
	}
	delete(f.codes, submitted)
	order.DeliveryStatus = db.StatusDelivered
	return code.OrderID, nil
}

// Walks one order through the whole lifecycle: pending, approved, on the way
// with an ETA, a failed redemption with the wrong code, the real redemption,
// and finally the owner's cleanup. A second customer's order rides along to
// show redemption touches exactly one code and one order.
func TestOrderLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	order := &db.Order{
		ID:             uuid.New(),
		Reference:      "ORD-20260829-ABC12",
		UserID:         "user-1",
		Email:          "u1@example.com",
		DeliveryStatus: db.StatusPending,
	}
	bystander := &db.Order{
		ID:             uuid.New(),
		Reference:      "ORD-20260829-XYZ99",
		UserID:         "user-2",
		Email:          "u2@example.com",
		DeliveryStatus: db.StatusOnTheWay,
	}

	store := newFakeFulfillmentStore(order, bystander)
	emails := &recordingEmailSender{}

	admin := NewAdminOrderService(store, testLogger())
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	admin.now = func() time.Time { return now }

	delivery := NewDeliveryService(store, store, emails, testLogger())

	ctx := context.Background()

	bystanderCode, err := store.Issue(ctx, bystander.ID, "user-2", "u2@example.com")
	if err != nil {
		t.Fatalf("failed to seed bystander code: %v", err)
	}

	// Requesting a code before dispatch must fail.
	if _, err := delivery.RequestCode(ctx, order.ID, "user-1", "u1@example.com"); !errors.Is(err, db.ErrOrderNotOnTheWay) {
		t.Fatalf("expected ErrOrderNotOnTheWay before dispatch, got %v", err)
	}

	if _, err := admin.SetDeliveryStatus(ctx, SetDeliveryStatusInput{OrderID: order.ID, Status: "approved"}); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	dispatched, err := admin.SetDeliveryStatus(ctx, SetDeliveryStatusInput{OrderID: order.ID, Status: "on the way", ETAText: "2 days"})
	if err != nil {
		t.Fatalf("failed to dispatch: %v", err)
	}
	wantETA := now.Add(48 * time.Hour)
	if dispatched.ETA == nil || !dispatched.ETA.Equal(wantETA) {
		t.Fatalf("expected ETA %v, got %v", wantETA, dispatched.ETA)
	}

	// The ETA is committed once; a second dispatch is refused.
	if _, err := admin.SetDeliveryStatus(ctx, SetDeliveryStatusInput{OrderID: order.ID, Status: "on the way", ETAText: "1 day"}); !errors.Is(err, fulfillment.ErrETAAlreadySet) {
		t.Fatalf("expected ErrETAAlreadySet on second dispatch, got %v", err)
	}

	code, err := delivery.RequestCode(ctx, order.ID, "user-1", "u1@example.com")
	if err != nil {
		t.Fatalf("failed to request code: %v", err)
	}
	if len(emails.codes) != 1 || emails.codes[0] != code.Code {
		t.Fatalf("expected the code to be emailed, got %v", emails.codes)
	}
	if _, err := delivery.RequestCode(ctx, order.ID, "user-1", "u1@example.com"); !errors.Is(err, db.ErrCodeAlreadyIssued) {
		t.Fatalf("expected ErrCodeAlreadyIssued on a second request, got %v", err)
	}

	// A wrong code changes nothing.
	if _, err := delivery.Redeem(ctx, "ZZZZZZZZ", "user-1"); !errors.Is(err, db.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound for a wrong code, got %v", err)
	}
	if got, _ := store.GetByID(ctx, order.ID); got.DeliveryStatus != db.StatusOnTheWay {
		t.Fatalf("wrong code must not move the order, got %q", got.DeliveryStatus)
	}
	if len(store.codes) != 2 {
		t.Fatalf("wrong code must not consume anything, %d codes left", len(store.codes))
	}

	delivered, err := delivery.Redeem(ctx, code.Code, "user-1")
	if err != nil {
		t.Fatalf("failed to redeem: %v", err)
	}
	if delivered.ID != order.ID || delivered.DeliveryStatus != db.StatusDelivered {
		t.Fatalf("expected the order back as delivered, got %+v", delivered)
	}

	// Redemption consumed exactly one code and delivered exactly one order.
	if len(store.codes) != 1 {
		t.Fatalf("expected exactly one code consumed, %d left", len(store.codes))
	}
	if _, ok := store.codes[bystanderCode.Code]; !ok {
		t.Fatal("redemption consumed the wrong code")
	}
	if got, _ := store.GetByID(ctx, bystander.ID); got.DeliveryStatus != db.StatusOnTheWay {
		t.Fatalf("redemption must not touch other orders, got %q", got.DeliveryStatus)
	}

	// The code is single-use.
	if _, err := delivery.Redeem(ctx, code.Code, "user-1"); !errors.Is(err, db.ErrCodeNotFound) {
		t.Fatalf("expected a burned code to be gone, got %v", err)
	}

	if err := admin.DeleteOrder(ctx, order.ID, "user-1", "u1@example.com"); err != nil {
		t.Fatalf("failed to delete delivered order: %v", err)
	}
	if _, err := store.GetByID(ctx, order.ID); !errors.Is(err, db.ErrOrderNotFound) {
		t.Fatalf("expected the order to be gone, got %v", err)
	}
}

// A guest checkout carries no account id; once the purchaser signs in with the
// same email they can run the rest of the lifecycle themselves.
func TestGuestOrderLifecycleByEmail(t *testing.T) {
	t.Parallel()

	order := &db.Order{
		ID:             uuid.New(),
		Reference:      "ORD-20260829-GST01",
		UserID:         "guest",
		Email:          "g@example.com",
		DeliveryStatus: db.StatusApproved,
	}

	store := newFakeFulfillmentStore(order)
	admin := NewAdminOrderService(store, testLogger())
	delivery := NewDeliveryService(store, store, &recordingEmailSender{}, testLogger())

	ctx := context.Background()

	if _, err := admin.SetDeliveryStatus(ctx, SetDeliveryStatusInput{OrderID: order.ID, Status: "on the way", ETAText: "3 hours"}); err != nil {
		t.Fatalf("failed to dispatch: %v", err)
	}

	// A signed-in user with a different email is a stranger to this order.
	if _, err := delivery.RequestCode(ctx, order.ID, "user-2", "other@example.com"); !errors.Is(err, db.ErrOrderNotOwned) {
		t.Fatalf("expected ErrOrderNotOwned for a stranger, got %v", err)
	}

	code, err := delivery.RequestCode(ctx, order.ID, "user-1", "g@example.com")
	if err != nil {
		t.Fatalf("expected email-matched request to succeed, got %v", err)
	}

	delivered, err := delivery.Redeem(ctx, code.Code, "user-1")
	if err != nil {
		t.Fatalf("failed to redeem guest order code: %v", err)
	}
	if delivered.DeliveryStatus != db.StatusDelivered {
		t.Fatalf("expected delivered, got %q", delivered.DeliveryStatus)
	}

	if err := admin.DeleteOrder(ctx, order.ID, "user-1", "g@example.com"); err != nil {
		t.Fatalf("expected email-matched delete to succeed, got %v", err)
	}
}
