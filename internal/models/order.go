package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusApproved  DeliveryStatus = "approved"
	StatusOnTheWay  DeliveryStatus = "on the way"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRejected  DeliveryStatus = "rejected"
)

// GuestUserID marks orders placed without a signed-in account.
const GuestUserID = "guest"

// Order is a single purchased line item awaiting fulfillment. A multi-item
// checkout fans out into one Order per bag line.
type Order struct {
	ID        uuid.UUID `json:"id"`
	Reference string    `json:"reference"`
	UserID    string    `json:"user_id"`

	// Contact snapshot captured at order time; not live-linked to the profile.
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	ItemName   string `json:"item_name"`
	ImageURL   string `json:"image_url"`
	PriceCents int    `json:"price_cents"`
	ItemStatus string `json:"item_status"`

	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	ETA            *time.Time     `json:"eta,omitempty"`
	CustomerSeen   bool           `json:"customer_seen"`
	OrderedAt      time.Time      `json:"ordered_at"`
}

// OwnedBy reports whether a requester may act on the order. Guest orders
// carry no account id, so they fall back to the email recorded at checkout —
// the same match the customer order listing uses.
func (o *Order) OwnedBy(requesterID, requesterEmail string) bool {
	if o == nil {
		return false
	}
	if o.UserID == requesterID {
		return true
	}
	return o.UserID == GuestUserID && requesterEmail != "" && strings.EqualFold(o.Email, requesterEmail)
}

// IsDelivered reports whether the order reached its terminal state.
func (o *Order) IsDelivered() bool {
	return o != nil && o.DeliveryStatus == StatusDelivered
}

// IsDeletable reports whether either party may remove the record.
func (o *Order) IsDeletable() bool {
	return o.IsDelivered()
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusOnTheWay, StatusDelivered, StatusRejected:
		return true
	default:
		return false
	}
}
