package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/fulfillment"
	"github.com/veloracart/velora/internal/models"
)

var (
	ErrCodeNotFound      = errors.New("invalid or expired code")
	ErrCodeAlreadyIssued = errors.New("a valid code already exists for this order")
	ErrOrderNotOnTheWay  = errors.New("order is not on the way")
)

const uniqueViolationCode = "23505"

// codeInsertAttempts bounds the retry-on-conflict loop for the practically
// impossible case of two generated codes colliding.
const codeInsertAttempts = 5

// CodeStore mints and redeems single-use delivery codes. At most one valid
// code exists per order (unique index on order_id) and codes are globally
// unique (unique index on code).
type CodeStore struct {
	pool *pgxpool.Pool
}

func NewCodeStore(pool *pgxpool.Pool) *CodeStore {
	return &CodeStore{pool: pool}
}

// Issue creates a code for an on-the-way order the requester owns and flips
// the order's customer_seen flag in the same transaction. Guest orders are
// matched by the requester's email; the code row itself is always keyed to
// the requester's account.
func (s *CodeStore) Issue(ctx context.Context, orderID uuid.UUID, ownerID, ownerEmail string) (*DeliveryCode, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		status string
		order  models.Order
	)
	row := tx.QueryRow(ctx,
		`SELECT delivery_status, user_id, email FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	if err := row.Scan(&status, &order.UserID, &order.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.OwnedBy(ownerID, ownerEmail) {
		return nil, ErrOrderNotOwned
	}
	if models.DeliveryStatus(status) != StatusOnTheWay {
		return nil, ErrOrderNotOnTheWay
	}

	code, err := s.insertCode(ctx, tx, orderID, ownerID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET customer_seen = TRUE WHERE id = $1`, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit code issue: %w", err)
	}
	return code, nil
}

func (s *CodeStore) insertCode(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, ownerID string) (*DeliveryCode, error) {
	for attempt := 0; attempt < codeInsertAttempts; attempt++ {
		code := &models.DeliveryCode{
			Code:    fulfillment.NewDeliveryCode(),
			UserID:  ownerID,
			OrderID: orderID,
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO codes (code, user_id, order_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, code.Code, code.UserID, code.OrderID)
		err := row.Scan(&code.ID, &code.CreatedAt)
		if err == nil {
			return code, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			if pgErr.ConstraintName == "codes_order_id_key" {
				return nil, ErrCodeAlreadyIssued
			}
			// Code value collision: regenerate and try again.
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to generate a unique code after %d attempts", codeInsertAttempts)
}

// Redeem consumes a submitted code. The requester must own the matched
// order; on success the code row is deleted and the order moves to
// "delivered" in the same transaction, so both effects are observed together.
func (s *CodeStore) Redeem(ctx context.Context, submitted, requesterID string) (uuid.UUID, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		codeID  uuid.UUID
		orderID uuid.UUID
		ownerID string
	)
	row := tx.QueryRow(ctx,
		`SELECT id, order_id, user_id FROM codes WHERE code = $1 FOR UPDATE`, submitted)
	if err := row.Scan(&codeID, &orderID, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrCodeNotFound
		}
		return uuid.Nil, err
	}
	if ownerID != requesterID {
		return uuid.Nil, ErrOrderNotOwned
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM codes WHERE id = $1`, codeID)
	if err != nil {
		return uuid.Nil, err
	}
	if cmdTag.RowsAffected() != 1 {
		return uuid.Nil, ErrCodeNotFound
	}

	cmdTag, err = tx.Exec(ctx, `
		UPDATE orders
		SET delivery_status = $1
		WHERE id = $2 AND delivery_status = $3
	`, string(StatusDelivered), orderID, string(StatusOnTheWay))
	if err != nil {
		return uuid.Nil, err
	}
	if cmdTag.RowsAffected() == 0 {
		return uuid.Nil, fmt.Errorf("%w: order %s left %q", ErrInvalidStatusTransition, orderID, StatusOnTheWay)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit redemption: %w", err)
	}
	return orderID, nil
}

// ListByUser returns the caller's active codes keyed by order id, for the
// customer orders view.
func (s *CodeStore) ListByUser(ctx context.Context, userID string) (map[uuid.UUID]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT order_id, code FROM codes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[uuid.UUID]string)
	for rows.Next() {
		var (
			orderID uuid.UUID
			code    string
		)
		if err := rows.Scan(&orderID, &code); err != nil {
			return nil, err
		}
		codes[orderID] = code
	}
	return codes, rows.Err()
}

// ActiveOrderIDs returns the set of orders that currently have a valid code.
// The admin view uses it to distinguish issued from pending codes.
func (s *CodeStore) ActiveOrderIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT order_id FROM codes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var orderID uuid.UUID
		if err := rows.Scan(&orderID); err != nil {
			return nil, err
		}
		ids[orderID] = true
	}
	return ids, rows.Err()
}
