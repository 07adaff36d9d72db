package models

import (
	"time"

	"github.com/google/uuid"
)

// BagItem is a pending-purchase line tied to a user. Bag items are consumed
// (deleted) as a side effect of successful order creation.
type BagItem struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	PriceCents   int       `json:"price_cents"`
	Availability string    `json:"availability"`
	AddedAt      time.Time `json:"added_at"`
}

type WishlistItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

type Subscriber struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
