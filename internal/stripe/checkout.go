// Package stripe wraps the external checkout widget: session creation and
// webhook validation. Payment capture itself happens entirely on Stripe's
// side; Velora only reacts to the completed/expired callbacks.
package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// CheckoutClient creates hosted checkout sessions for bag purchases.
type CheckoutClient struct {
	client  *stripe.Client
	baseURL string
}

func NewCheckoutClient(secretKey, baseURL string) *CheckoutClient {
	return &CheckoutClient{
		client:  stripe.NewClient(secretKey),
		baseURL: baseURL,
	}
}

// CheckoutLine is one bag item carried into the hosted checkout.
type CheckoutLine struct {
	Name       string
	PriceCents int64
}

// CheckoutSessionParams holds parameters for creating a checkout session.
type CheckoutSessionParams struct {
	UserID        string
	CustomerEmail string
	// BagItemID is set for a single-item purchase; empty means the whole bag
	// ("all") is being charged.
	BagItemID  string
	Lines      []CheckoutLine
	SuccessURL string
	CancelURL  string
}

const (
	// Metadata keys echoed back on the webhook; checkout completion relies on
	// them to find the purchaser and scope the bag fan-out.
	MetadataUserID    = "user_id"
	MetadataEmail     = "email"
	MetadataBagItemID = "bag_item_id"
	MetadataScope     = "scope"

	ScopeAll        = "all"
	ScopeSingleItem = "single"
)

// CreateCheckoutSession creates a hosted checkout session for the given bag
// lines.
func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if len(params.Lines) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.Lines))
	for _, line := range params.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String("usd"),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(line.PriceCents),
			},
			Quantity: stripe.Int64(1),
		})
	}

	scope := ScopeAll
	if params.BagItemID != "" {
		scope = ScopeSingleItem
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		LineItems:          lineItems,
		CustomerEmail:      stripe.String(params.CustomerEmail),
		Metadata: map[string]string{
			MetadataUserID:    params.UserID,
			MetadataEmail:     params.CustomerEmail,
			MetadataBagItemID: params.BagItemID,
			MetadataScope:     scope,
		},
	}
	if params.CustomerEmail == "" {
		sessionParams.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}
