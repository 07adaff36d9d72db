package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/models"
)

var ErrBagItemNotFound = errors.New("bag item not found")

// BagStore holds pending-purchase lines. Items are removed one at a time as
// checkout creates the matching order records.
type BagStore struct {
	pool *pgxpool.Pool
}

func NewBagStore(pool *pgxpool.Pool) *BagStore {
	return &BagStore{pool: pool}
}

func (s *BagStore) Add(ctx context.Context, item *BagItem) error {
	query := `
		INSERT INTO bag (user_id, product_id, name, image_url, price_cents, availability)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, added_at
	`
	row := s.pool.QueryRow(ctx, query,
		item.UserID, item.ProductID, item.Name, item.ImageURL, item.PriceCents, item.Availability)

	var addedAt pgtype.Timestamptz
	if err := row.Scan(&item.ID, &addedAt); err != nil {
		return err
	}
	item.AddedAt = addedAt.Time
	return nil
}

func (s *BagStore) ListByUser(ctx context.Context, userID string) ([]*BagItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, product_id, name, image_url, price_cents, availability, added_at
		FROM bag WHERE user_id = $1 ORDER BY added_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BagItem
	for rows.Next() {
		var (
			item    models.BagItem
			addedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Name,
			&item.ImageURL, &item.PriceCents, &item.Availability, &addedAt); err != nil {
			return nil, err
		}
		item.AddedAt = addedAt.Time
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *BagStore) Delete(ctx context.Context, itemID uuid.UUID, userID string) error {
	cmdTag, err := s.pool.Exec(ctx,
		`DELETE FROM bag WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBagItemNotFound
	}
	return nil
}

// WishlistStore persists per-user wishlist toggles.
type WishlistStore struct {
	pool *pgxpool.Pool
}

func NewWishlistStore(pool *pgxpool.Pool) *WishlistStore {
	return &WishlistStore{pool: pool}
}

// Toggle adds the product to the wishlist, or removes it if already present.
// Returns true when the product ends up wishlisted.
func (s *WishlistStore) Toggle(ctx context.Context, userID string, productID uuid.UUID) (bool, error) {
	cmdTag, err := s.pool.Exec(ctx,
		`DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, err
	}
	if cmdTag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO wishlist (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *WishlistStore) ListByUser(ctx context.Context, userID string) ([]*WishlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, product_id, added_at
		FROM wishlist WHERE user_id = $1 ORDER BY added_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*WishlistItem
	for rows.Next() {
		var (
			item    models.WishlistItem
			addedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &addedAt); err != nil {
			return nil, err
		}
		item.AddedAt = addedAt.Time
		items = append(items, &item)
	}
	return items, rows.Err()
}
