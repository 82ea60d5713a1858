package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store exposes the repositories through the flat method set the importer
// consumes.
type Store struct {
	picks     *PickRepository
	themes    *ThemeRepository
	profiles  *ProfileRepository
	authUsers *AuthUserRepository
}

// Store returns the importer-facing view of the database.
func (db *DB) Store() *Store {
	return &Store{
		picks:     db.Picks(),
		themes:    db.Themes(),
		profiles:  db.Profiles(),
		authUsers: db.AuthUsers(),
	}
}

// FindPickByURL returns the pick with the given album URL, or ErrNotFound.
func (s *Store) FindPickByURL(ctx context.Context, url string) (*Pick, error) {
	return s.picks.GetByURL(ctx, url)
}

// InsertPick stores a new pick and fills its generated fields.
func (s *Store) InsertPick(ctx context.Context, p *Pick) error {
	return s.picks.Insert(ctx, p)
}

// UpdatePick rewrites an existing pick in place.
func (s *Store) UpdatePick(ctx context.Context, p *Pick) error {
	return s.picks.Update(ctx, p)
}

// CountPicksCreatedBetween counts picks with from <= created_at <= to.
func (s *Store) CountPicksCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return s.picks.CountCreatedBetween(ctx, from, to)
}

// GetTheme returns a theme by id, or ErrNotFound.
func (s *Store) GetTheme(ctx context.Context, id uuid.UUID) (*Theme, error) {
	return s.themes.Get(ctx, id)
}

// FindThemeCovering returns the theme whose week contains day.
func (s *Store) FindThemeCovering(ctx context.Context, day time.Time) (*Theme, error) {
	return s.themes.FindCovering(ctx, day)
}

// FindThemeByBounds returns the theme with exactly these week bounds.
func (s *Store) FindThemeByBounds(ctx context.Context, start, end time.Time) (*Theme, error) {
	return s.themes.FindByBounds(ctx, start, end)
}

// CreateTheme inserts a theme.
func (s *Store) CreateTheme(ctx context.Context, t *Theme) error {
	return s.themes.Create(ctx, t)
}

// FindAuthUserByEmail looks up an auth user by email, or ErrNotFound.
func (s *Store) FindAuthUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	return s.authUsers.FindByEmail(ctx, email)
}

// GetProfile returns a profile by id, or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.profiles.Get(ctx, id)
}

// CreateProfile inserts a profile.
func (s *Store) CreateProfile(ctx context.Context, p *Profile) error {
	return s.profiles.Create(ctx, p)
}
