package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a profile by ID.
func (r *ProfileRepository) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, display_name, created_at
		FROM profiles
		WHERE id = $1
	`
	var p Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.DisplayName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// Create inserts a profile. The ID is the identity provider's user ID.
func (r *ProfileRepository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, display_name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query, p.ID, p.DisplayName).Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}
