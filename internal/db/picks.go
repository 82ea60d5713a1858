package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PickRepository handles music pick database operations.
type PickRepository struct {
	pool *pgxpool.Pool
}

const pickColumns = `id, user_id, weekly_theme_id, platform_url, platform, pick_type,
	title, artist, album, album_artwork_url, created_at`

func scanPick(row pgx.Row) (*Pick, error) {
	var p Pick
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ThemeID,
		&p.PlatformURL,
		&p.Platform,
		&p.PickType,
		&p.Title,
		&p.Artist,
		&p.Album,
		&p.AlbumArtworkURL,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a pick by ID.
func (r *PickRepository) Get(ctx context.Context, id uuid.UUID) (*Pick, error) {
	query := `SELECT ` + pickColumns + ` FROM music_picks WHERE id = $1`
	p, err := scanPick(r.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying pick: %w", err)
	}
	return p, err
}

// GetByURL retrieves the pick with this platform URL.
func (r *PickRepository) GetByURL(ctx context.Context, url string) (*Pick, error) {
	query := `SELECT ` + pickColumns + ` FROM music_picks WHERE platform_url = $1`
	p, err := scanPick(r.pool.QueryRow(ctx, query, url))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying pick by url: %w", err)
	}
	return p, err
}

// Insert adds a new pick. CreatedAt is kept when set so imported picks carry
// the time they were posted.
func (r *PickRepository) Insert(ctx context.Context, p *Pick) error {
	query := `
		INSERT INTO music_picks (id, user_id, weekly_theme_id, platform_url, platform, pick_type,
			title, artist, album, album_artwork_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))
		RETURNING created_at
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var createdAt *time.Time
	if !p.CreatedAt.IsZero() {
		createdAt = &p.CreatedAt
	}
	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.UserID,
		p.ThemeID,
		p.PlatformURL,
		p.Platform,
		p.PickType,
		p.Title,
		p.Artist,
		p.Album,
		p.AlbumArtworkURL,
		createdAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting pick: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the pick with this ID.
func (r *PickRepository) Update(ctx context.Context, p *Pick) error {
	query := `
		UPDATE music_picks SET
			user_id = $2,
			weekly_theme_id = $3,
			platform_url = $4,
			platform = $5,
			pick_type = $6,
			title = $7,
			artist = $8,
			album = $9,
			album_artwork_url = $10,
			created_at = $11
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.ThemeID,
		p.PlatformURL,
		p.Platform,
		p.PickType,
		p.Title,
		p.Artist,
		p.Album,
		p.AlbumArtworkURL,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating pick: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCreatedBetween counts picks with from <= created_at <= to.
func (r *PickRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM music_picks WHERE created_at >= $1 AND created_at <= $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting picks: %w", err)
	}
	return count, nil
}

// ListForTheme returns a theme's picks, newest first.
func (r *PickRepository) ListForTheme(ctx context.Context, themeID uuid.UUID) ([]Pick, error) {
	query := `SELECT ` + pickColumns + ` FROM music_picks WHERE weekly_theme_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, themeID)
	if err != nil {
		return nil, fmt.Errorf("querying theme picks: %w", err)
	}
	defer rows.Close()

	var picks []Pick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pick: %w", err)
		}
		picks = append(picks, *p)
	}
	return picks, rows.Err()
}
