package chat

import (
	"sort"
	"time"
)

// Candidate is an album link attributed to the sender who posted it.
type Candidate struct {
	URL      string
	Sender   string
	Platform Platform
	Kind     Kind
	Date     time.Time
}

// CollectOptions configures Collect.
type CollectOptions struct {
	// Cutoff drops messages older than this time. Zero disables it.
	Cutoff time.Time
}

// CollectResult holds the unique candidates and scan counters.
type CollectResult struct {
	Candidates   []Candidate
	WithinCutoff int // messages at or after the cutoff
	LinksFound   int // links of any kind in those messages
}

// Collect scans messages newest first and keeps one candidate per album URL.
// Messages are sorted by date before scanning (ties go to the later line), so
// when a link was posted several times the newest posting wins.
func Collect(msgs []Message, opts CollectOptions) CollectResult {
	ordered := make([]Message, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.After(ordered[j].Date)
		}
		return ordered[i].LineNum > ordered[j].LineNum
	})

	var res CollectResult
	seen := make(map[string]struct{})
	for _, msg := range ordered {
		if !opts.Cutoff.IsZero() && msg.Date.Before(opts.Cutoff) {
			continue
		}
		res.WithinCutoff++

		links := ExtractLinks(msg.Text)
		res.LinksFound += len(links)
		for _, l := range links {
			if l.Kind != KindAlbum {
				continue
			}
			if _, dup := seen[l.URL]; dup {
				continue
			}
			seen[l.URL] = struct{}{}
			res.Candidates = append(res.Candidates, Candidate{
				URL:      l.URL,
				Sender:   msg.Sender,
				Platform: l.Platform,
				Kind:     l.Kind,
				Date:     msg.Date,
			})
		}
	}
	return res
}
