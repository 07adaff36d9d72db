package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/models"
	"github.com/veloracart/velora/internal/stripe"
)

type fakeBagStore struct {
	items   []*db.BagItem
	deleted []uuid.UUID
	listErr error
}

func (f *fakeBagStore) ListByUser(_ context.Context, userID string) ([]*db.BagItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*db.BagItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeBagStore) Delete(_ context.Context, itemID uuid.UUID, userID string) error {
	f.deleted = append(f.deleted, itemID)
	kept := f.items[:0]
	for _, item := range f.items {
		if item.ID != itemID || item.UserID != userID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

type fakeOrderCreator struct {
	orders    []*db.Order
	createErr error
}

func (f *fakeOrderCreator) Create(_ context.Context, order *db.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = uuid.New()
	order.OrderedAt = time.Now()
	f.orders = append(f.orders, order)
	return nil
}

type fakeUserGetter struct {
	user *db.User
}

func (f *fakeUserGetter) GetByID(_ context.Context, id string) (*db.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, db.ErrUserNotFound
	}
	return f.user, nil
}

type fakeSessionCreator struct {
	lastParams stripe.CheckoutSessionParams
	url        string
	err        error
}

func (f *fakeSessionCreator) CreateCheckoutSession(_ context.Context, params stripe.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripelib.CheckoutSession{ID: "cs_test_123", URL: f.url}, nil
}

type recordingEmailSender struct {
	confirmations []string
	codes         []string
}

func (r *recordingEmailSender) SendOrderConfirmation(_ context.Context, order *db.Order) error {
	r.confirmations = append(r.confirmations, order.Reference)
	return nil
}

func (r *recordingEmailSender) SendDeliveryCode(_ context.Context, _ *db.Order, code string) error {
	r.codes = append(r.codes, code)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func bagItem(userID, name string, priceCents int) *db.BagItem {
	return &db.BagItem{
		ID:           uuid.New(),
		UserID:       userID,
		ProductID:    uuid.New(),
		Name:         name,
		ImageURL:     "https://cdn.example.com/" + name + ".jpg",
		PriceCents:   priceCents,
		Availability: models.AvailabilityAvailable,
	}
}

func TestStartCheckoutBuildsSessionFromBag(t *testing.T) {
	t.Parallel()

	bag := &fakeBagStore{items: []*db.BagItem{
		bagItem("user-1", "candle", 1999),
		bagItem("user-1", "mug", 1500),
		bagItem("user-2", "poster", 900),
	}}
	sessions := &fakeSessionCreator{url: "https://checkout.example.com/cs_test_123"}

	svc := NewCheckoutService(bag, &fakeOrderCreator{}, &fakeUserGetter{}, sessions, nil, "https://shop.example.com/", testLogger())

	url, err := svc.StartCheckout(context.Background(), StartCheckoutInput{UserID: "user-1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != sessions.url {
		t.Fatalf("expected session URL %q, got %q", sessions.url, url)
	}

	if len(sessions.lastParams.Lines) != 2 {
		t.Fatalf("expected 2 checkout lines, got %d", len(sessions.lastParams.Lines))
	}
	if sessions.lastParams.UserID != "user-1" {
		t.Errorf("expected user-1 in params, got %q", sessions.lastParams.UserID)
	}
	if sessions.lastParams.SuccessURL != "https://shop.example.com/orders?checkout=success" {
		t.Errorf("unexpected success URL %q", sessions.lastParams.SuccessURL)
	}
}

func TestStartCheckoutRejectsEmptyBag(t *testing.T) {
	t.Parallel()

	svc := NewCheckoutService(&fakeBagStore{}, &fakeOrderCreator{}, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{UserID: "user-1"})
	if !errors.Is(err, ErrBagEmpty) {
		t.Fatalf("expected ErrBagEmpty, got %v", err)
	}
}

func TestStartCheckoutRejectsForeignBagItem(t *testing.T) {
	t.Parallel()

	other := bagItem("user-2", "poster", 900)
	bag := &fakeBagStore{items: []*db.BagItem{bagItem("user-1", "candle", 1999), other}}

	svc := NewCheckoutService(bag, &fakeOrderCreator{}, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{UserID: "user-1", BagItemID: other.ID})
	if !errors.Is(err, ErrCheckoutForbidden) {
		t.Fatalf("expected ErrCheckoutForbidden, got %v", err)
	}
}

func TestCompleteCheckoutFansOutOneOrderPerBagItem(t *testing.T) {
	t.Parallel()

	items := []*db.BagItem{
		bagItem("user-1", "candle", 1999),
		bagItem("user-1", "mug", 1500),
	}
	bag := &fakeBagStore{items: append([]*db.BagItem{}, items...)}
	orders := &fakeOrderCreator{}
	emails := &recordingEmailSender{}
	users := &fakeUserGetter{user: &db.User{ID: "user-1", Phone: "555-0100", Address: "1 Main St"}}

	svc := NewCheckoutService(bag, orders, users, &fakeSessionCreator{}, emails, "https://shop.example.com", testLogger())

	err := svc.CompleteCheckout(context.Background(), CompleteCheckoutInput{UserID: "user-1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orders.orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders.orders))
	}
	if len(bag.deleted) != 2 {
		t.Fatalf("expected 2 bag deletions, got %d", len(bag.deleted))
	}
	if len(emails.confirmations) != 2 {
		t.Fatalf("expected 2 confirmation emails, got %d", len(emails.confirmations))
	}

	seen := map[string]bool{}
	for i, order := range orders.orders {
		if order.DeliveryStatus != db.StatusPending {
			t.Errorf("order %d: expected pending status, got %q", i, order.DeliveryStatus)
		}
		if order.Phone != "555-0100" || order.Address != "1 Main St" {
			t.Errorf("order %d: missing contact snapshot", i)
		}
		if order.ItemName != items[i].Name || order.PriceCents != items[i].PriceCents {
			t.Errorf("order %d: item fields not carried over", i)
		}
		if seen[order.Reference] {
			t.Errorf("duplicate order reference %q", order.Reference)
		}
		seen[order.Reference] = true
	}
}

func TestCompleteCheckoutSingleItemScope(t *testing.T) {
	t.Parallel()

	target := bagItem("user-1", "mug", 1500)
	bag := &fakeBagStore{items: []*db.BagItem{bagItem("user-1", "candle", 1999), target}}
	orders := &fakeOrderCreator{}

	svc := NewCheckoutService(bag, orders, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	err := svc.CompleteCheckout(context.Background(), CompleteCheckoutInput{UserID: "user-1", BagItemID: target.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orders.orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders.orders))
	}
	if orders.orders[0].ItemName != "mug" {
		t.Errorf("expected mug order, got %q", orders.orders[0].ItemName)
	}
	if len(bag.items) != 1 {
		t.Errorf("expected the other bag item to survive, got %d items", len(bag.items))
	}
}

func TestCompleteCheckoutIsIdempotentOnRetry(t *testing.T) {
	t.Parallel()

	bag := &fakeBagStore{}
	orders := &fakeOrderCreator{}

	svc := NewCheckoutService(bag, orders, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	// A webhook redelivery after the bag was already consumed must not write
	// any orders.
	if err := svc.CompleteCheckout(context.Background(), CompleteCheckoutInput{UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders.orders))
	}
}

func TestHandleCheckoutSessionCompletedReadsMetadata(t *testing.T) {
	t.Parallel()

	item := bagItem("user-1", "candle", 1999)
	bag := &fakeBagStore{items: []*db.BagItem{item}}
	orders := &fakeOrderCreator{}

	svc := NewCheckoutService(bag, orders, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	session := &stripelib.CheckoutSession{
		Metadata: map[string]string{
			stripe.MetadataUserID:    "user-1",
			stripe.MetadataEmail:     "u1@example.com",
			stripe.MetadataBagItemID: item.ID.String(),
			stripe.MetadataScope:     stripe.ScopeSingleItem,
		},
	}

	if err := svc.HandleCheckoutSessionCompleted(context.Background(), session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders.orders))
	}
	if orders.orders[0].Email != "u1@example.com" {
		t.Errorf("expected purchaser email on order, got %q", orders.orders[0].Email)
	}
}

func TestHandleCheckoutSessionExpiredLeavesBagAlone(t *testing.T) {
	t.Parallel()

	bag := &fakeBagStore{items: []*db.BagItem{bagItem("user-1", "candle", 1999)}}
	orders := &fakeOrderCreator{}

	svc := NewCheckoutService(bag, orders, &fakeUserGetter{}, &fakeSessionCreator{}, nil, "https://shop.example.com", testLogger())

	if err := svc.HandleCheckoutSessionExpired(context.Background(), &stripelib.CheckoutSession{ID: "cs_test_123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bag.items) != 1 || len(orders.orders) != 0 {
		t.Fatal("expired session must not touch the bag or create orders")
	}
}
