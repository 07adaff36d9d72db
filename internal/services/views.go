package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/observability"
)

type viewOrderStore interface {
	ListAll(ctx context.Context) ([]*db.Order, error)
	ListForPurchaser(ctx context.Context, userID, email string) ([]*db.Order, error)
}

type viewUserStore interface {
	ListAll(ctx context.Context) ([]*db.User, error)
}

type viewCodeStore interface {
	ListByUser(ctx context.Context, userID string) (map[uuid.UUID]string, error)
	ActiveOrderIDs(ctx context.Context) (map[uuid.UUID]bool, error)
}

// AdminOrderView is one row of the fulfillment dashboard. The code itself is
// deliberately absent: admins only learn whether one exists.
type AdminOrderView struct {
	Order         *db.Order
	CustomerName  string
	CustomerPhone string
	CodeIssued    bool
}

// CustomerOrderView is one row of the customer's order history.
type CustomerOrderView struct {
	Order *db.Order
	// Code holds the live delivery code when one has been issued.
	Code string
	// CanRequestCode is true when the order is on the way and no code exists
	// yet.
	CanRequestCode bool
	// Countdown is a human phrase derived from the ETA at read time, for
	// example "2 days" or "Your package is here!". Empty before dispatch.
	Countdown string
}

// OrderViewService assembles the admin and customer projections over orders,
// purchasers, and delivery codes.
type OrderViewService struct {
	orderStore viewOrderStore
	userStore  viewUserStore
	codeStore  viewCodeStore
	now        func() time.Time
	logger     *slog.Logger
}

func NewOrderViewService(orderStore viewOrderStore, userStore viewUserStore, codeStore viewCodeStore, logger *slog.Logger) *OrderViewService {
	return &OrderViewService{
		orderStore: orderStore,
		userStore:  userStore,
		codeStore:  codeStore,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *OrderViewService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// AdminOrders returns every order joined with the purchaser's profile where
// one exists. Guest orders fall back to the contact snapshot on the order.
func (s *OrderViewService) AdminOrders(ctx context.Context) ([]AdminOrderView, error) {
	span := sentry.StartSpan(
		ctx,
		"service.views.admin_orders",
		sentry.WithOpName("service.views"),
		sentry.WithDescription("AdminOrders"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	orders, err := s.orderStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	users, err := s.userStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	byID := make(map[string]*db.User, len(users))
	byEmail := make(map[string]*db.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
		if user.Email != "" {
			byEmail[user.Email] = user
		}
	}

	issued, err := s.codeStore.ActiveOrderIDs(ctx)
	if err != nil {
		// The dashboard is still useful without the issued flags.
		s.loggerFromContext(ctx).Warn("failed to load issued-code flags", "error", err)
		issued = map[uuid.UUID]bool{}
	}

	views := make([]AdminOrderView, 0, len(orders))
	for _, order := range orders {
		view := AdminOrderView{
			Order:         order,
			CustomerPhone: order.Phone,
			CodeIssued:    issued[order.ID],
		}
		if user, ok := byID[order.UserID]; ok {
			view.CustomerName = user.Name
		} else if user, ok := byEmail[order.Email]; ok {
			view.CustomerName = user.Name
		}
		views = append(views, view)
	}

	meter.Distribution("orders.dashboard.rows", float64(len(views)))
	return views, nil
}

// CustomerOrders returns the requester's orders with their code state and a
// per-request ETA countdown. Orders are matched by account ID or by the email
// used at checkout, so guest purchases surface after sign-in.
func (s *OrderViewService) CustomerOrders(ctx context.Context, userID, email string) ([]CustomerOrderView, error) {
	span := sentry.StartSpan(
		ctx,
		"service.views.customer_orders",
		sentry.WithOpName("service.views"),
		sentry.WithDescription("CustomerOrders"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	orders, err := s.orderStore.ListForPurchaser(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	codes, err := s.codeStore.ListByUser(ctx, userID)
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to load delivery codes", "error", err, "user_id", userID)
		codes = map[uuid.UUID]string{}
	}

	now := s.now()
	views := make([]CustomerOrderView, 0, len(orders))
	for _, order := range orders {
		code := codes[order.ID]
		// Only offer code generation for orders the issuer will actually
		// accept: owned directly, or a guest order matched by email.
		canRequest := code == "" &&
			order.DeliveryStatus == db.StatusOnTheWay &&
			order.OwnedBy(userID, email)
		views = append(views, CustomerOrderView{
			Order:          order,
			Code:           code,
			CanRequestCode: canRequest,
			Countdown:      etaCountdown(order.ETA, now),
		})
	}

	return views, nil
}

// etaCountdown renders the time left until the ETA. It is computed at read
// time so the phrase decays naturally with no stored state.
func etaCountdown(eta *time.Time, now time.Time) string {
	if eta == nil {
		return ""
	}
	remaining := eta.Sub(now)
	if remaining <= 0 {
		return "Your package is here!"
	}

	switch {
	case remaining >= 24*time.Hour:
		return pluralize(int(remaining/(24*time.Hour)), "day")
	case remaining >= time.Hour:
		return pluralize(int(remaining/time.Hour), "hour")
	case remaining >= time.Minute:
		return pluralize(int(remaining/time.Minute), "minute")
	default:
		return "less than a minute"
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
