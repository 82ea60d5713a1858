package db

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a member of the club.
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

// AuthUser is a row of the identity provider's user table.
type AuthUser struct {
	ID    uuid.UUID
	Email string
}

// Theme is a weekly bucket of picks. WeekStart and WeekEnd are calendar
// dates (midnight UTC).
type Theme struct {
	ID        uuid.UUID
	Name      string
	WeekStart time.Time
	WeekEnd   time.Time
	IsActive  bool
	CreatedAt time.Time
}

// Pick is one shared album. PlatformURL is unique.
type Pick struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ThemeID         *uuid.UUID // nullable
	PlatformURL     string
	Platform        string
	PickType        string
	Title           string
	Artist          string
	Album           string
	AlbumArtworkURL *string // nullable
	CreatedAt       time.Time
}

// DateFormat is the layout used for theme week bounds.
const DateFormat = "2006-01-02"
