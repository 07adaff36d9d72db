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

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/fulfillment"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/observability"
)

var ErrETARequired = errors.New("an ETA is required to mark an order on the way")

type adminOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, status db.DeliveryStatus) error
	SetOnTheWay(ctx context.Context, orderID uuid.UUID, eta time.Time) error
	Delete(ctx context.Context, orderID uuid.UUID, ownerID, ownerEmail string) error
}

// AdminOrderService applies dashboard decisions to orders: approving,
// rejecting, dispatching with an ETA, and cleaning up delivered records.
type AdminOrderService struct {
	orderStore adminOrderStore
	now        func() time.Time
	logger     *slog.Logger
}

func NewAdminOrderService(orderStore adminOrderStore, logger *slog.Logger) *AdminOrderService {
	return &AdminOrderService{
		orderStore: orderStore,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *AdminOrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type SetDeliveryStatusInput struct {
	OrderID uuid.UUID
	Status  string
	// ETAText is a human phrase like "45 minutes" or "3 days"; required when
	// Status is "on the way", ignored otherwise.
	ETAText string
}

// SetDeliveryStatus moves an order along the fulfillment graph. The store
// repeats the transition guard inside its UPDATE, so a stale read here cannot
// let an illegal transition through.
func (s *AdminOrderService) SetDeliveryStatus(ctx context.Context, input SetDeliveryStatusInput) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.admin_orders.set_delivery_status",
		sentry.WithOpName("service.admin_orders"),
		sentry.WithDescription("SetDeliveryStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	recordRejection := func(reason string) {
		meter.Count("order.status_change.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	next := db.DeliveryStatus(strings.ToLower(strings.TrimSpace(input.Status)))

	order, err := s.orderStore.GetByID(ctx, input.OrderID)
	if err != nil {
		recordRejection("order_not_found")
		return nil, err
	}

	if err := fulfillment.CheckTransition(order, next); err != nil {
		recordRejection("invalid_transition")
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidStatusTransition, err)
	}

	if next == db.StatusOnTheWay {
		etaText := strings.TrimSpace(input.ETAText)
		if etaText == "" {
			recordRejection("eta_missing")
			return nil, ErrETARequired
		}
		duration, err := fulfillment.ParseETA(etaText)
		if err != nil {
			recordRejection("eta_invalid")
			return nil, err
		}
		if err := s.orderStore.SetOnTheWay(ctx, input.OrderID, s.now().Add(duration)); err != nil {
			recordRejection("store_rejected")
			return nil, err
		}
	} else {
		if err := s.orderStore.SetStatus(ctx, input.OrderID, next); err != nil {
			recordRejection("store_rejected")
			return nil, err
		}
	}

	meter.Count("order.status_changed", 1, sentry.WithAttributes(
		attribute.String("status", string(next)),
	))
	s.loggerFromContext(ctx).Info("order status changed", "order_id", input.OrderID, "from", order.DeliveryStatus, "to", next)

	return s.orderStore.GetByID(ctx, input.OrderID)
}

// DeleteOrder removes a delivered order record. Admins may delete any
// delivered order; customers only their own, where guest orders match by the
// requester's email (requesterID is empty for admin-initiated deletes).
func (s *AdminOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID, requesterID, requesterEmail string) error {
	span := sentry.StartSpan(
		ctx,
		"service.admin_orders.delete_order",
		sentry.WithOpName("service.admin_orders"),
		sentry.WithDescription("DeleteOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	if err := s.orderStore.Delete(ctx, orderID, requesterID, requesterEmail); err != nil {
		meter.Count("order.delete.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", deleteFailureReason(err)),
		))
		return err
	}

	meter.Count("order.deleted", 1)
	s.loggerFromContext(ctx).Info("order deleted", "order_id", orderID)
	return nil
}

func deleteFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, db.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, db.ErrOrderNotDelivered):
		return "not_delivered"
	case errors.Is(err, db.ErrOrderNotOwned):
		return "not_owner"
	default:
		return "store_error"
	}
}
