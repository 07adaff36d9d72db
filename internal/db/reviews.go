package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/models"
)

var ErrAlreadySubscribed = errors.New("email already subscribed")

type ReviewStore struct {
	pool *pgxpool.Pool
}

func NewReviewStore(pool *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{pool: pool}
}

func (s *ReviewStore) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		review.ProductID, review.UserID, review.Rating, review.Comment)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&review.ID, &createdAt); err != nil {
		return err
	}
	review.CreatedAt = createdAt.Time
	return nil
}

func (s *ReviewStore) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		var (
			review    models.Review
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&review.ID, &review.ProductID, &review.UserID,
			&review.Rating, &review.Comment, &createdAt); err != nil {
			return nil, err
		}
		review.CreatedAt = createdAt.Time
		reviews = append(reviews, &review)
	}
	return reviews, rows.Err()
}

type SubscriberStore struct {
	pool *pgxpool.Pool
}

func NewSubscriberStore(pool *pgxpool.Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

func (s *SubscriberStore) Subscribe(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO subscribers (email) VALUES ($1)`, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrAlreadySubscribed
		}
		return err
	}
	return nil
}
