package songlink

// Metadata is the subset of a song.link entity the importer uses.
type Metadata struct {
	Title        string
	ArtistName   string
	ThumbnailURL string
}

type linksResponse struct {
	EntityUniqueID     string                  `json:"entityUniqueId"`
	PageURL            string                  `json:"pageUrl"`
	LinksByPlatform    map[string]platformLink `json:"linksByPlatform"`
	EntitiesByUniqueID map[string]entity       `json:"entitiesByUniqueId"`
}

type platformLink struct {
	URL            string `json:"url"`
	EntityUniqueID string `json:"entityUniqueId"`
}

type entity struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	ArtistName   string `json:"artistName"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// platformKeys maps the app's platform names to song.link's keys.
var platformKeys = map[string]string{
	"spotify":       "spotify",
	"apple_music":   "appleMusic",
	"youtube_music": "youtubeMusic",
	"tidal":         "tidal",
	"soundcloud":    "soundcloud",
	"deezer":        "deezer",
	"bandcamp":      "bandcamp",
	"other":         "",
}
