package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Repository loads users from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RepositoryPort abstracts user lookup for the service.
type RepositoryPort interface {
	GetByEmail(ctx context.Context, email string) (User, error)
}

// GetByEmail returns the enabled user with the given email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, password_hash, enabled, created_at
FROM users WHERE email=$1 AND enabled=TRUE`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
