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

// ThemeRepository handles weekly theme database operations.
type ThemeRepository struct {
	pool *pgxpool.Pool
}

const themeColumns = `id, theme_name, week_start_date, week_end_date, is_active, created_at`

func scanTheme(row pgx.Row) (*Theme, error) {
	var t Theme
	err := row.Scan(&t.ID, &t.Name, &t.WeekStart, &t.WeekEnd, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves a theme by ID.
func (r *ThemeRepository) Get(ctx context.Context, id uuid.UUID) (*Theme, error) {
	query := `SELECT ` + themeColumns + ` FROM weekly_themes WHERE id = $1`
	t, err := scanTheme(r.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying theme: %w", err)
	}
	return t, err
}

// List returns all themes, newest week first.
func (r *ThemeRepository) List(ctx context.Context) ([]Theme, error) {
	query := `SELECT ` + themeColumns + ` FROM weekly_themes ORDER BY week_start_date DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying themes: %w", err)
	}
	defer rows.Close()

	var themes []Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning theme: %w", err)
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

// FindCovering returns the theme whose bounds contain day. When several
// match, the one with the latest start wins.
func (r *ThemeRepository) FindCovering(ctx context.Context, day time.Time) (*Theme, error) {
	query := `
		SELECT ` + themeColumns + `
		FROM weekly_themes
		WHERE week_start_date <= $1 AND week_end_date >= $1
		ORDER BY week_start_date DESC
		LIMIT 1
	`
	t, err := scanTheme(r.pool.QueryRow(ctx, query, day.Format(DateFormat)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying covering theme: %w", err)
	}
	return t, err
}

// FindByBounds returns a theme with exactly these bounds.
func (r *ThemeRepository) FindByBounds(ctx context.Context, start, end time.Time) (*Theme, error) {
	query := `
		SELECT ` + themeColumns + `
		FROM weekly_themes
		WHERE week_start_date = $1 AND week_end_date = $2
		LIMIT 1
	`
	t, err := scanTheme(r.pool.QueryRow(ctx, query, start.Format(DateFormat), end.Format(DateFormat)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying theme by bounds: %w", err)
	}
	return t, err
}

// Create inserts a new theme.
func (r *ThemeRepository) Create(ctx context.Context, t *Theme) error {
	query := `
		INSERT INTO weekly_themes (id, theme_name, week_start_date, week_end_date, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		t.ID,
		t.Name,
		t.WeekStart.Format(DateFormat),
		t.WeekEnd.Format(DateFormat),
		t.IsActive,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting theme: %w", err)
	}
	return nil
}

// SetActive makes id the only active theme.
func (r *ThemeRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE weekly_themes SET is_active = FALSE WHERE id <> $1 AND is_active`, id); err != nil {
		return fmt.Errorf("deactivating themes: %w", err)
	}
	result, err := tx.Exec(ctx, `UPDATE weekly_themes SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("activating theme: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete detaches the theme's picks and removes the theme.
func (r *ThemeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE music_picks SET weekly_theme_id = NULL WHERE weekly_theme_id = $1`, id); err != nil {
		return fmt.Errorf("detaching picks: %w", err)
	}
	result, err := tx.Exec(ctx, `DELETE FROM weekly_themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting theme: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
