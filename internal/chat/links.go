package chat

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Platform is a streaming catalog a link belongs to.
type Platform string

const (
	PlatformSpotify Platform = "spotify"
	PlatformTidal   Platform = "tidal"
)

// Kind is the catalog entity a link points at.
type Kind string

const (
	KindAlbum    Kind = "album"
	KindTrack    Kind = "track"
	KindPlaylist Kind = "playlist"
)

// Link is a music link found in message text.
type Link struct {
	URL      string
	Platform Platform
	Kind     Kind
}

type linkRule struct {
	platform Platform
	re       *regexp.Regexp
}

// Tidal share links may omit the kind segment ("tidal.com/123456"); those
// point at albums. A bare id must end the URL, see bareIDComplete.
var linkRules = []linkRule{
	{
		platform: PlatformSpotify,
		re:       regexp.MustCompile(`(?i)https?://open\.spotify\.com/(album|track|playlist)/[^\s)]+`),
	},
	{
		platform: PlatformTidal,
		re:       regexp.MustCompile(`(?i)https?://(?:listen\.)?tidal\.com/(?:browse/)?(?:(album|track|playlist)/[^\s)]+|\d+(?:[?#][^\s)]*)?)`),
	},
}

// ExtractLinks returns every supported music link in text, in the order they
// appear.
func ExtractLinks(text string) []Link {
	type found struct {
		start int
		link  Link
	}
	var all []found
	for _, rule := range linkRules {
		for _, m := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			kind := KindAlbum
			if m[2] >= 0 {
				kind = Kind(strings.ToLower(text[m[2]:m[3]]))
			} else if !bareIDComplete(text, m[1]) {
				continue
			}
			all = append(all, found{
				start: m[0],
				link: Link{
					URL:      strings.TrimSpace(text[m[0]:m[1]]),
					Platform: rule.platform,
					Kind:     kind,
				},
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	links := make([]Link, len(all))
	for i, f := range all {
		links[i] = f.link
	}
	return links
}

// bareIDComplete reports whether a bare numeric Tidal match ending at end
// covers the whole URL, so "tidal.com/2024/best-of" is not cut to an id.
func bareIDComplete(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return r == ')' || unicode.IsSpace(r)
}
