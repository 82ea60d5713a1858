// Package metadata looks up album title, artist and artwork for a music link.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justestif/albumclub/internal/logging"
	"github.com/justestif/albumclub/internal/songlink"
	"github.com/justestif/albumclub/internal/spotify"
)

// Platform names stored on picks.
const (
	PlatformSpotify      = "spotify"
	PlatformAppleMusic   = "apple_music"
	PlatformYouTubeMusic = "youtube_music"
	PlatformSoundCloud   = "soundcloud"
	PlatformTidal        = "tidal"
	PlatformBandcamp     = "bandcamp"
	PlatformOther        = "other"
)

// Fallbacks used when a lookup returns empty fields.
const (
	UnknownAlbum  = "Unknown Album"
	UnknownArtist = "Unknown Artist"
)

// ErrLookupFailed is returned when no source could describe the link.
var ErrLookupFailed = errors.New("album lookup failed")

// DetectPlatform classifies a link by host.
func DetectPlatform(url string) string {
	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, "spotify.com"):
		return PlatformSpotify
	case strings.Contains(u, "music.apple.com"):
		return PlatformAppleMusic
	case strings.Contains(u, "music.youtube.com"):
		return PlatformYouTubeMusic
	case strings.Contains(u, "soundcloud.com"):
		return PlatformSoundCloud
	case strings.Contains(u, "tidal.com"):
		return PlatformTidal
	case strings.Contains(u, "bandcamp.com"):
		return PlatformBandcamp
	default:
		return PlatformOther
	}
}

// Album is the lookup result returned to clients.
type Album struct {
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Platform     string  `json:"platform"`
	AlbumArtwork *string `json:"albumArtwork"`
}

// SpotifyAlbums is the subset of the Spotify client used here.
type SpotifyAlbums interface {
	AlbumByURL(ctx context.Context, url string) (*spotify.Album, error)
}

// LinkMetadata is the subset of the song.link client used here.
type LinkMetadata interface {
	Metadata(ctx context.Context, sourceURL string) (*songlink.Metadata, error)
}

// Service combines Spotify and song.link lookups. Either source may be nil.
type Service struct {
	spotify  SpotifyAlbums
	songlink LinkMetadata
}

// NewService creates a lookup service.
func NewService(sp SpotifyAlbums, sl LinkMetadata) *Service {
	return &Service{spotify: sp, songlink: sl}
}

// Lookup describes the album behind url.
func (s *Service) Lookup(ctx context.Context, url string) (*Album, error) {
	platform := DetectPlatform(url)

	var title, artist, artwork string
	var errs []error

	if platform == PlatformSpotify && s.spotify != nil {
		album, err := s.spotify.AlbumByURL(ctx, url)
		if err == nil {
			title, artist, artwork = album.Title, album.Artist, album.ArtworkURL
		} else {
			logging.Warn().Err(err).Str("url", url).Msg("spotify lookup failed, falling back to song.link")
			errs = append(errs, err)
		}
	}

	if title == "" && s.songlink != nil {
		meta, err := s.songlink.Metadata(ctx, url)
		if err == nil {
			title, artist, artwork = meta.Title, meta.ArtistName, meta.ThumbnailURL
		} else {
			errs = append(errs, err)
		}
	}

	if title == "" && artist == "" && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, errors.Join(errs...))
	}

	out := &Album{Title: title, Artist: artist, Platform: platform}
	if out.Title == "" {
		out.Title = UnknownAlbum
	}
	if out.Artist == "" {
		out.Artist = UnknownArtist
	}
	if artwork != "" {
		out.AlbumArtwork = &artwork
	}
	return out, nil
}
