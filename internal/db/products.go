package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `id, sku, name, description, category, image_url, price_cents, availability, created_at, updated_at`

func (s *ProductStore) Create(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (sku, name, description, category, image_url, price_cents, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		product.SKU, product.Name, product.Description, product.Category,
		product.ImageURL, product.PriceCents, product.Availability)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&product.ID, &createdAt, &updatedAt); err != nil {
		return err
	}
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return nil
}

// UpsertBySKU inserts or refreshes a product from a catalog manifest import.
func (s *ProductStore) UpsertBySKU(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (sku, name, description, category, image_url, price_cents, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
			category = EXCLUDED.category, image_url = EXCLUDED.image_url,
			price_cents = EXCLUDED.price_cents, availability = EXCLUDED.availability,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		product.SKU, product.Name, product.Description, product.Category,
		product.ImageURL, product.PriceCents, product.Availability)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&product.ID, &createdAt, &updatedAt); err != nil {
		return err
	}
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (s *ProductStore) ListAll(ctx context.Context) ([]*Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *ProductStore) UpdateAvailability(ctx context.Context, id uuid.UUID, availability string) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE products SET availability = $1, updated_at = NOW() WHERE id = $2`,
		availability, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row orderRowScanner) (*Product, error) {
	var (
		product   models.Product
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&product.ID, &product.SKU, &product.Name, &product.Description,
		&product.Category, &product.ImageURL, &product.PriceCents, &product.Availability,
		&createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return &product, nil
}
