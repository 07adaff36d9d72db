package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryCode is a single-use secret proving physical handoff. Codes are
// created when an order is on the way and destroyed on redemption; they are
// never updated.
type DeliveryCode struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	UserID    string    `json:"user_id"`
	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
