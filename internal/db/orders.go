package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/crypto"
	"github.com/veloracart/velora/internal/models"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid delivery status transition")
	ErrETAAlreadyCommitted     = errors.New("ETA already set for order")
	ErrOrderNotDelivered       = errors.New("order is not delivered")
	ErrOrderNotOwned           = errors.New("order does not belong to requester")
)

// OrderStore owns creation, status mutation, and deletion of order records.
// The contact snapshot (phone, address) is encrypted at rest.
type OrderStore struct {
	pool      *pgxpool.Pool
	encryptor crypto.Encryptor
}

func NewOrderStore(pool *pgxpool.Pool, encryptor crypto.Encryptor) (*OrderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	return &OrderStore{pool: pool, encryptor: encryptor}, nil
}

const orderColumns = `id, reference, user_id, email, phone, address, item_name, image_url,
	price_cents, item_status, delivery_status, eta, customer_seen, ordered_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	phone, err := s.encryptor.Encrypt(order.Phone)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone: %w", err)
	}
	address, err := s.encryptor.Encrypt(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encrypt address: %w", err)
	}

	query := `
		INSERT INTO orders (reference, user_id, email, phone, address, item_name,
			image_url, price_cents, item_status, delivery_status, customer_seen, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, ordered_at
	`
	row := s.pool.QueryRow(ctx, query,
		order.Reference, order.UserID, order.Email, phone, address,
		order.ItemName, order.ImageURL, order.PriceCents, order.ItemStatus,
		string(models.StatusPending), false,
	)
	var orderedAt pgtype.Timestamptz
	if err := row.Scan(&order.ID, &orderedAt); err != nil {
		return err
	}
	order.DeliveryStatus = models.StatusPending
	order.CustomerSeen = false
	order.OrderedAt = orderedAt.Time
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := s.scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// ListAll returns every order, newest first. Admin view only.
func (s *OrderStore) ListAll(ctx context.Context) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY ordered_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanOrders(rows)
}

// ListForPurchaser returns orders belonging to a user, matching by user id
// with a fallback on the order's email snapshot.
func (s *OrderStore) ListForPurchaser(ctx context.Context, userID, email string) ([]*Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 OR email = $2 ORDER BY ordered_at DESC`,
		userID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanOrders(rows)
}

// SetStatus performs a direct status write for pending/approved/rejected.
// The WHERE clause repeats the guard conditions so a stale read cannot push
// a delivered or on-the-way order into an illegal state.
func (s *OrderStore) SetStatus(ctx context.Context, orderID uuid.UUID, status DeliveryStatus) error {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return fmt.Errorf("%w: %q is not a direct write", ErrInvalidStatusTransition, status)
	}

	query := `
		UPDATE orders
		SET delivery_status = $1
		WHERE id = $2 AND delivery_status <> 'delivered'
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(status), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order missing or delivered", ErrInvalidStatusTransition)
	}
	return nil
}

// SetOnTheWay commits the ETA and moves the order to "on the way" in one
// write. The ETA is write-once: a second call finds eta non-null and fails.
func (s *OrderStore) SetOnTheWay(ctx context.Context, orderID uuid.UUID, eta time.Time) error {
	query := `
		UPDATE orders
		SET delivery_status = $1, eta = $2
		WHERE id = $3 AND eta IS NULL AND delivery_status <> 'delivered'
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(StatusOnTheWay), eta, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrETAAlreadyCommitted
	}
	return nil
}

// Delete removes an order. Only delivered orders are deletable; ownerID
// restricts the delete to the purchaser (guest orders match by ownerEmail)
// and is skipped for admin callers.
func (s *OrderStore) Delete(ctx context.Context, orderID uuid.UUID, ownerID, ownerEmail string) error {
	query := `DELETE FROM orders WHERE id = $1 AND delivery_status = 'delivered'`
	args := []any{orderID}
	if ownerID != "" {
		query += ` AND (user_id = $2 OR (user_id = $3 AND LOWER(email) = LOWER($4)))`
		args = append(args, ownerID, models.GuestUserID, ownerEmail)
	}

	cmdTag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		order, getErr := s.GetByID(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		if ownerID != "" && !order.OwnedBy(ownerID, ownerEmail) {
			return ErrOrderNotOwned
		}
		return ErrOrderNotDelivered
	}
	return nil
}

type orderRowScanner interface {
	Scan(dest ...any) error
}

func (s *OrderStore) scanOrder(row orderRowScanner) (*Order, error) {
	var (
		order models.Order
		eta   pgtype.Timestamptz
		at    pgtype.Timestamptz
		phone string
		addr  string
	)
	err := row.Scan(
		&order.ID, &order.Reference, &order.UserID, &order.Email, &phone, &addr,
		&order.ItemName, &order.ImageURL, &order.PriceCents, &order.ItemStatus,
		&order.DeliveryStatus, &eta, &order.CustomerSeen, &at,
	)
	if err != nil {
		return nil, err
	}

	if order.Phone, err = s.encryptor.Decrypt(phone); err != nil {
		return nil, fmt.Errorf("failed to decrypt phone: %w", err)
	}
	if order.Address, err = s.encryptor.Decrypt(addr); err != nil {
		return nil, fmt.Errorf("failed to decrypt address: %w", err)
	}

	if eta.Valid {
		t := eta.Time
		order.ETA = &t
	}
	order.OrderedAt = at.Time
	return &order, nil
}

func (s *OrderStore) scanOrders(rows pgx.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
