package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/observability"
	"github.com/veloracart/velora/internal/services"
)

type StripeEventRouter struct {
	checkoutService *services.CheckoutService
	logger          *slog.Logger
}

func NewStripeEventRouter(checkoutService *services.CheckoutService, logger *slog.Logger) *StripeEventRouter {
	return &StripeEventRouter{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

func (r *StripeEventRouter) Handle(ctx context.Context, event *stripeapi.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.stripe_router.handle",
		sentry.WithOpName("handler.stripe_router"),
		sentry.WithDescription("StripeEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "stripe"))
	meter.Count("webhook.router.received", 1)
	recordFailed := func(reason string) {
		meter.Count("webhook.router.failed", 1, sentry.WithAttributes(attribute.String("reason", reason)))
	}

	if event == nil {
		recordFailed("missing_event")
		return fmt.Errorf("missing stripe event")
	}
	if event.Data == nil {
		recordFailed("missing_event_data")
		return fmt.Errorf("missing stripe event data")
	}
	meter.SetAttributes(attribute.String("webhook.event_type", string(event.Type)))

	logger := logging.FromContext(ctx, r.logger)

	switch event.Type {
	case "checkout.session.completed":
		session, err := parseCheckoutSession(event.Data.Raw)
		if err != nil {
			recordFailed("checkout_session_unmarshal_failed")
			return err
		}
		if err := r.checkoutService.HandleCheckoutSessionCompleted(ctx, session); err != nil {
			recordFailed("checkout_session_completed_failed")
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	case "checkout.session.expired":
		session, err := parseCheckoutSession(event.Data.Raw)
		if err != nil {
			recordFailed("checkout_session_unmarshal_failed")
			return err
		}
		if err := r.checkoutService.HandleCheckoutSessionExpired(ctx, session); err != nil {
			recordFailed("checkout_session_expired_failed")
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	default:
		logger.Info("unhandled Stripe event type", "type", event.Type)
		meter.Count("webhook.router.unhandled", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	}
}

func parseCheckoutSession(raw json.RawMessage) (*stripeapi.CheckoutSession, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}
