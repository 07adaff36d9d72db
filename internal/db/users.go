package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore mirrors profile records from the identity provider.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, email, name, phone, address, is_admin, created_at, updated_at`

// Upsert records the profile seen at login, keyed by the provider subject.
func (s *UserStore) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, name, phone, address, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = NOW()
		RETURNING created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.Phone, user.Address, user.IsAdmin)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		return err
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateContact stores the user's own phone/address for future order
// snapshots.
func (s *UserStore) UpdateContact(ctx context.Context, id, phone, address string) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE users SET phone = $1, address = $2, updated_at = NOW() WHERE id = $3`,
		phone, address, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListAll returns every profile for the admin orders join.
func (s *UserStore) ListAll(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row orderRowScanner) (*User, error) {
	var (
		user      models.User
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.Address,
		&user.IsAdmin, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}
