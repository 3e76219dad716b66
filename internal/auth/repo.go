package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
)

// Repository looks up operator accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, full_name, password_hash, is_active, created_at
		FROM users
		WHERE email = $1 AND is_active
	`
	var u User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrUnauthorized
		}
		return nil, err
	}
	return &u, nil
}
