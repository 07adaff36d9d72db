package services

import (
	"context"
	"fmt"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/email"
)

// OrderEmailSender is the out-of-band channel for order lifecycle messages.
// The delivery code in particular must never travel through an admin-visible
// surface, so it goes straight to the purchaser's inbox.
type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order) error
	SendDeliveryCode(ctx context.Context, order *db.Order, code string) error
}

type ProviderOrderEmailSender struct {
	provider email.Provider
}

func NewProviderOrderEmailSender(provider email.Provider) *ProviderOrderEmailSender {
	return &ProviderOrderEmailSender{provider: provider}
}

func (s *ProviderOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return email.SendOrderConfirmation(ctx, s.provider, buildOrderInfo(order))
}

func (s *ProviderOrderEmailSender) SendDeliveryCode(ctx context.Context, order *db.Order, code string) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	info := buildOrderInfo(order)
	info.DeliveryCode = code
	return email.SendDeliveryCode(ctx, s.provider, info)
}

func buildOrderInfo(order *db.Order) *email.OrderInfo {
	info := &email.OrderInfo{
		Reference:     order.Reference,
		CustomerEmail: order.Email,
		ItemName:      order.ItemName,
		Price:         formatPrice(order.PriceCents),
		OrderDate:     order.OrderedAt.Format("January 2, 2006"),
	}
	if order.ETA != nil {
		info.ETA = order.ETA.Format("Monday, January 2 at 3:04 PM MST")
	}
	return info
}

func formatPrice(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order) error {
	return nil
}

func (noopOrderEmailSender) SendDeliveryCode(context.Context, *db.Order, string) error {
	return nil
}
