package spotify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ErrNotAlbumURL is returned for links that do not point at a Spotify album.
var ErrNotAlbumURL = errors.New("not a spotify album url")

// Album is the catalog data shown for a pick.
type Album struct {
	ID          string
	Title       string
	Artist      string // comma-separated artist names
	ArtworkURL  string // largest image, empty when none
	ReleaseDate string
}

var albumURL = regexp.MustCompile(`open\.spotify\.com/(?:intl-[a-zA-Z-]+/)?album/([A-Za-z0-9]{16,24})`)

// AlbumID extracts the album id from an open.spotify.com album link.
func AlbumID(url string) (string, error) {
	m := albumURL.FindStringSubmatch(url)
	if m == nil {
		return "", ErrNotAlbumURL
	}
	return m[1], nil
}

// Album fetches an album by id.
func (c *Client) Album(ctx context.Context, id string) (*Album, error) {
	full, err := c.api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("getting album %s: %w", id, err)
	}
	album := convertAlbum(full)
	return &album, nil
}

// AlbumByURL resolves an album link.
func (c *Client) AlbumByURL(ctx context.Context, url string) (*Album, error) {
	id, err := AlbumID(url)
	if err != nil {
		return nil, err
	}
	return c.Album(ctx, id)
}

func convertAlbum(full *spotify.FullAlbum) Album {
	artists := make([]string, len(full.Artists))
	for i, a := range full.Artists {
		artists[i] = a.Name
	}

	var artwork string
	widest := -1
	for _, img := range full.Images {
		if int(img.Width) > widest {
			widest = int(img.Width)
			artwork = img.URL
		}
	}

	return Album{
		ID:          full.ID.String(),
		Title:       full.Name,
		Artist:      strings.Join(artists, ", "),
		ArtworkURL:  artwork,
		ReleaseDate: full.ReleaseDate,
	}
}
