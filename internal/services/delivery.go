package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/observability"
)

type deliveryCodeStore interface {
	Issue(ctx context.Context, orderID uuid.UUID, ownerID, ownerEmail string) (*db.DeliveryCode, error)
	Redeem(ctx context.Context, submitted, requesterID string) (uuid.UUID, error)
}

type deliveryOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// DeliveryService owns the handoff protocol: minting the single-use delivery
// code once an order is on the way, and redeeming it to close the order out.
type DeliveryService struct {
	codeStore   deliveryCodeStore
	orderStore  deliveryOrderStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewDeliveryService(codeStore deliveryCodeStore, orderStore deliveryOrderStore, emailSender OrderEmailSender, logger *slog.Logger) *DeliveryService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &DeliveryService{
		codeStore:   codeStore,
		orderStore:  orderStore,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *DeliveryService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// RequestCode mints the delivery code for an on-the-way order the requester
// owns (guest orders match by the requester's email) and emails it to the
// contact address on the order. The code value is returned so the customer
// view can show it immediately.
func (s *DeliveryService) RequestCode(ctx context.Context, orderID uuid.UUID, requesterID, requesterEmail string) (*db.DeliveryCode, error) {
	span := sentry.StartSpan(
		ctx,
		"service.delivery.request_code",
		sentry.WithOpName("service.delivery"),
		sentry.WithDescription("RequestCode"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("delivery.code.requested", 1)

	code, err := s.codeStore.Issue(ctx, orderID, requesterID, requesterEmail)
	if err != nil {
		meter.Count("delivery.code.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", issueFailureReason(err)),
		))
		return nil, err
	}
	meter.Count("delivery.code.issued", 1)

	order, orderErr := s.orderStore.GetByID(ctx, orderID)
	if orderErr != nil {
		logger.Warn("issued code but failed to load order for email", "error", orderErr, "order_id", orderID)
		return code, nil
	}

	if err := s.emailSender.SendDeliveryCode(ctx, order, code.Code); err != nil {
		logger.Warn("failed to email delivery code", "error", err, "order_id", orderID)
	}

	logger.Info("delivery code issued", "order_id", orderID, "user_id", requesterID)
	return code, nil
}

// Redeem burns a submitted code and returns the order it just delivered. The
// requester must own the order the code belongs to.
func (s *DeliveryService) Redeem(ctx context.Context, submitted, requesterID string) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.delivery.redeem",
		sentry.WithOpName("service.delivery"),
		sentry.WithDescription("Redeem"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("delivery.redeem.attempted", 1)

	normalized := strings.ToUpper(strings.TrimSpace(submitted))
	if !codePattern.MatchString(normalized) {
		meter.Count("delivery.redeem.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "malformed_code"),
		))
		return nil, db.ErrCodeNotFound
	}

	orderID, err := s.codeStore.Redeem(ctx, normalized, requesterID)
	if err != nil {
		meter.Count("delivery.redeem.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", redeemFailureReason(err)),
		))
		return nil, err
	}
	meter.Count("delivery.redeem.succeeded", 1)

	order, err := s.orderStore.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("redeemed code but failed to load order %s: %w", orderID, err)
	}

	s.loggerFromContext(ctx).Info("delivery code redeemed", "order_id", orderID, "user_id", requesterID)
	return order, nil
}

func issueFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, db.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, db.ErrOrderNotOwned):
		return "not_owner"
	case errors.Is(err, db.ErrOrderNotOnTheWay):
		return "not_on_the_way"
	case errors.Is(err, db.ErrCodeAlreadyIssued):
		return "already_issued"
	default:
		return "store_error"
	}
}

func redeemFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, db.ErrCodeNotFound):
		return "code_not_found"
	case errors.Is(err, db.ErrOrderNotOwned):
		return "not_owner"
	case errors.Is(err, db.ErrOrderNotOnTheWay):
		return "not_on_the_way"
	default:
		return "store_error"
	}
}
