package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthUserRepository reads the identity provider's auth.users table.
type AuthUserRepository struct {
	pool *pgxpool.Pool
}

// FindByEmail returns the user with exactly this email.
func (r *AuthUserRepository) FindByEmail(ctx context.Context, email string) (*AuthUser, error) {
	query := `
		SELECT id, email
		FROM auth.users
		WHERE email = $1
		LIMIT 1
	`
	var u AuthUser
	err := r.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying auth user: %w", err)
	}
	return &u, nil
}
