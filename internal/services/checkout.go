package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/fulfillment"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/models"
	"github.com/veloracart/velora/internal/observability"
	"github.com/veloracart/velora/internal/stripe"
)

var (
	ErrBagEmpty          = errors.New("bag has no items to check out")
	ErrCheckoutForbidden = errors.New("bag item does not belong to requester")
)

type checkoutBagStore interface {
	ListByUser(ctx context.Context, userID string) ([]*db.BagItem, error)
	Delete(ctx context.Context, itemID uuid.UUID, userID string) error
}

type checkoutOrderStore interface {
	Create(ctx context.Context, order *db.Order) error
}

type checkoutUserStore interface {
	GetByID(ctx context.Context, id string) (*db.User, error)
}

type checkoutSessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
}

// CheckoutService drives the purchase flow: it hands the bag to the hosted
// checkout and, once payment completes, fans the bag out into one order per
// item. Order writes never happen before the payment webhook arrives.
type CheckoutService struct {
	bagStore    checkoutBagStore
	orderStore  checkoutOrderStore
	userStore   checkoutUserStore
	checkout    checkoutSessionCreator
	emailSender OrderEmailSender
	baseURL     string
	now         func() time.Time
	logger      *slog.Logger
}

func NewCheckoutService(bagStore checkoutBagStore, orderStore checkoutOrderStore, userStore checkoutUserStore, checkout checkoutSessionCreator, emailSender OrderEmailSender, baseURL string, logger *slog.Logger) *CheckoutService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &CheckoutService{
		bagStore:    bagStore,
		orderStore:  orderStore,
		userStore:   userStore,
		checkout:    checkout,
		emailSender: emailSender,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
		logger:      logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type StartCheckoutInput struct {
	UserID string
	Email  string
	// BagItemID limits the purchase to a single bag line. The zero UUID means
	// the whole bag is charged.
	BagItemID uuid.UUID
}

// StartCheckout creates a hosted checkout session for the requester's bag and
// returns the URL to redirect them to.
func (s *CheckoutService) StartCheckout(ctx context.Context, input StartCheckoutInput) (string, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.start",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("StartCheckout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.started", 1)

	items, err := s.bagStore.ListByUser(ctx, input.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to list bag: %w", err)
	}

	if input.BagItemID != uuid.Nil {
		items = filterBagItem(items, input.BagItemID)
		if len(items) == 0 {
			meter.Count("checkout.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "bag_item_not_owned"),
			))
			return "", ErrCheckoutForbidden
		}
	}
	if len(items) == 0 {
		meter.Count("checkout.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "bag_empty"),
		))
		return "", ErrBagEmpty
	}

	lines := make([]stripe.CheckoutLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, stripe.CheckoutLine{
			Name:       item.Name,
			PriceCents: int64(item.PriceCents),
		})
	}

	bagItemID := ""
	if input.BagItemID != uuid.Nil {
		bagItemID = input.BagItemID.String()
	}

	session, err := s.checkout.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		UserID:        input.UserID,
		CustomerEmail: input.Email,
		BagItemID:     bagItemID,
		Lines:         lines,
		SuccessURL:    s.baseURL + "/orders?checkout=success",
		CancelURL:     s.baseURL + "/bag?checkout=cancelled",
	})
	if err != nil {
		meter.Count("checkout.session.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "create_failed"),
		))
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	meter.Count("checkout.session.created", 1)

	return session.URL, nil
}

// HandleCheckoutSessionCompleted reacts to the payment webhook: it reads the
// purchaser identity back out of the session metadata and converts the bag
// into orders.
func (s *CheckoutService) HandleCheckoutSessionCompleted(ctx context.Context, session *stripelib.CheckoutSession) error {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.session_completed",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("HandleCheckoutSessionCompleted"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	if session == nil {
		meter.Count("checkout.completion.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "missing_session"),
		))
		return fmt.Errorf("checkout session is required")
	}

	userID := strings.TrimSpace(session.Metadata[stripe.MetadataUserID])
	if userID == "" {
		userID = models.GuestUserID
	}
	purchaserEmail := strings.TrimSpace(session.Metadata[stripe.MetadataEmail])
	if purchaserEmail == "" && session.CustomerDetails != nil {
		purchaserEmail = session.CustomerDetails.Email
	}

	var bagItemID uuid.UUID
	if raw := strings.TrimSpace(session.Metadata[stripe.MetadataBagItemID]); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			meter.Count("checkout.completion.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_bag_item_id"),
			))
			return fmt.Errorf("invalid bag item id in session metadata: %w", err)
		}
		bagItemID = parsed
	}

	return s.CompleteCheckout(ctx, CompleteCheckoutInput{
		UserID:    userID,
		Email:     purchaserEmail,
		BagItemID: bagItemID,
	})
}

// HandleCheckoutSessionExpired is a no-op beyond bookkeeping: the bag is left
// untouched so the customer can try again.
func (s *CheckoutService) HandleCheckoutSessionExpired(ctx context.Context, session *stripelib.CheckoutSession) error {
	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.session.expired", 1)

	sessionID := ""
	if session != nil {
		sessionID = session.ID
	}
	s.loggerFromContext(ctx).Info("checkout session expired", "session_id", sessionID)
	return nil
}

type CompleteCheckoutInput struct {
	UserID    string
	Email     string
	BagItemID uuid.UUID
}

// CompleteCheckout writes one order per purchased bag line and deletes each
// bag line right after its order lands, so a crash mid-way never drops a paid
// item: worst case the line survives and the retry is idempotent per line.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, input CompleteCheckoutInput) error {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.complete",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CompleteCheckout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	items, err := s.bagStore.ListByUser(ctx, input.UserID)
	if err != nil {
		meter.Count("checkout.completion.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "bag_list_failed"),
		))
		return fmt.Errorf("failed to list bag: %w", err)
	}
	if input.BagItemID != uuid.Nil {
		items = filterBagItem(items, input.BagItemID)
	}
	if len(items) == 0 {
		// Webhook retry after the bag was already consumed.
		logger.Info("no bag items left to convert", "user_id", input.UserID)
		return nil
	}

	phone, address := s.contactSnapshot(ctx, input.UserID)

	for _, item := range items {
		order := &db.Order{
			Reference:      fulfillment.NewOrderReference(s.now()),
			UserID:         input.UserID,
			Email:          input.Email,
			Phone:          phone,
			Address:        address,
			ItemName:       item.Name,
			ImageURL:       item.ImageURL,
			PriceCents:     item.PriceCents,
			ItemStatus:     item.Availability,
			DeliveryStatus: db.StatusPending,
		}

		if err := s.orderStore.Create(ctx, order); err != nil {
			meter.Count("checkout.completion.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "order_create_failed"),
			))
			return fmt.Errorf("failed to create order for bag item %s: %w", item.ID, err)
		}
		meter.Count("order.created", 1)

		if err := s.bagStore.Delete(ctx, item.ID, input.UserID); err != nil {
			logger.Warn("failed to remove bag item after order creation", "error", err, "bag_item_id", item.ID, "order_id", order.ID)
		}

		if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
			logger.Warn("failed to send order confirmation", "error", err, "order_id", order.ID)
		}

		logger.Info("order created from checkout", "order_id", order.ID, "reference", order.Reference, "user_id", input.UserID)
	}

	return nil
}

func (s *CheckoutService) contactSnapshot(ctx context.Context, userID string) (phone, address string) {
	if userID == models.GuestUserID || s.userStore == nil {
		return "", ""
	}
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			s.loggerFromContext(ctx).Warn("failed to load contact snapshot", "error", err, "user_id", userID)
		}
		return "", ""
	}
	return user.Phone, user.Address
}

func filterBagItem(items []*db.BagItem, id uuid.UUID) []*db.BagItem {
	for _, item := range items {
		if item.ID == id {
			return []*db.BagItem{item}
		}
	}
	return nil
}
