package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/songlink"
)

// Store is the persistence the importer needs. Lookups return db.ErrNotFound
// when nothing matches. *db.Store implements it.
type Store interface {
	FindPickByURL(ctx context.Context, url string) (*db.Pick, error)
	InsertPick(ctx context.Context, p *db.Pick) error
	UpdatePick(ctx context.Context, p *db.Pick) error
	CountPicksCreatedBetween(ctx context.Context, from, to time.Time) (int, error)

	GetTheme(ctx context.Context, id uuid.UUID) (*db.Theme, error)
	FindThemeCovering(ctx context.Context, day time.Time) (*db.Theme, error)
	FindThemeByBounds(ctx context.Context, start, end time.Time) (*db.Theme, error)
	CreateTheme(ctx context.Context, t *db.Theme) error

	FindAuthUserByEmail(ctx context.Context, email string) (*db.AuthUser, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*db.Profile, error)
	CreateProfile(ctx context.Context, p *db.Profile) error
}

// MetadataFetcher looks up album metadata for a link. *songlink.Client
// implements it.
type MetadataFetcher interface {
	Metadata(ctx context.Context, sourceURL string) (*songlink.Metadata, error)
}

var _ Store = (*db.Store)(nil)
var _ MetadataFetcher = (*songlink.Client)(nil)
