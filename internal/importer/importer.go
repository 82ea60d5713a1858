// Package importer turns WhatsApp chat exports into album picks.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/chat"
	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/logging"
	"github.com/justestif/albumclub/internal/metrics"
	"github.com/justestif/albumclub/internal/songlink"
)

// DefaultWeekCap is the number of picks a week may receive from imports.
const DefaultWeekCap = 4

// Fallback values for picks whose metadata could not be fetched.
const (
	ImportedAlbumLabel = "Imported via WhatsApp"
	FallbackTitle      = "Imported album"
	FallbackArtist     = "Unknown"
	PickTypeAlbum      = "album"
)

// Sentinel errors. Both abort before any writes.
var (
	ErrMissingCredentials = errors.New("missing database credentials")
	ErrNoInput            = errors.New("no export provided")
)

// Importer runs the import pipeline against a Store.
type Importer struct {
	store         Store
	meta          MetadataFetcher
	weekCap       int
	roster        []Member
	defaultUserID string
	defaultOrder  chat.DateOrder
	location      *time.Location
	now           func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithWeekCap sets the per-week insert limit.
func WithWeekCap(n int) Option {
	return func(imp *Importer) {
		imp.weekCap = n
	}
}

// WithRoster replaces the member roster.
func WithRoster(roster []Member) Option {
	return func(imp *Importer) {
		imp.roster = roster
	}
}

// WithDefaultUserID sets the catch-all user for senders that cannot be
// mapped. It is validated at the start of each run.
func WithDefaultUserID(id string) Option {
	return func(imp *Importer) {
		imp.defaultUserID = id
	}
}

// WithDefaultDateOrder sets the order used when an export gives no evidence.
func WithDefaultDateOrder(order chat.DateOrder) Option {
	return func(imp *Importer) {
		imp.defaultOrder = order
	}
}

// WithLocation sets the zone export timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(imp *Importer) {
		imp.location = loc
	}
}

// WithClock sets the time source for cutoffs and future-date rejection.
func WithClock(now func() time.Time) Option {
	return func(imp *Importer) {
		imp.now = now
	}
}

// New creates an Importer. meta may be nil, in which case every pick uses
// the fallback metadata.
func New(store Store, meta MetadataFetcher, opts ...Option) *Importer {
	imp := &Importer{
		store:        store,
		meta:         meta,
		weekCap:      DefaultWeekCap,
		roster:       DefaultRoster(),
		defaultOrder: chat.OrderMDY,
		location:     time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Options are the per-run inputs.
type Options struct {
	// ThemeID, when set and found, receives every pick of the run.
	ThemeID *uuid.UUID
	// DaysBack drops messages older than this many days. Zero or less
	// imports everything.
	DaysBack int
}

// Import reads an export from r and persists its album links. Row-level
// failures are recorded in the summary; only missing configuration, an
// unreadable export or cancellation return an error.
func (imp *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Summary, error) {
	if imp.store == nil {
		metrics.RecordImportFailure()
		return nil, ErrMissingCredentials
	}
	if r == nil {
		metrics.RecordImportFailure()
		return nil, ErrNoInput
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		metrics.RecordImportFailure()
		return nil, fmt.Errorf("reading export: %w", err)
	}

	start := imp.now()
	run := newRun(imp.store, imp.roster, imp.weekCap)
	s := run.summary

	candidates := imp.collect(run, string(raw), opts.DaysBack, start)
	s.Found = len(candidates)

	defaultProfile := run.defaultProfile(ctx, imp.defaultUserID)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			metrics.RecordImportFailure()
			return s, fmt.Errorf("import interrupted: %w", err)
		}
		imp.importCandidate(ctx, run, c, opts.ThemeID, defaultProfile)
	}

	metrics.RecordImport(metrics.ImportResult{
		Inserted:         s.Inserted,
		Updated:          s.Updated,
		SkippedWeekLimit: s.SkippedWeekLimit,
		MissingUser:      len(s.MissingUserMapping),
		Errors:           len(s.Errors),
		Duration:         imp.now().Sub(start),
	})
	logging.Info().
		Int("found", s.Found).
		Int("inserted", s.Inserted).
		Int("updated", s.Updated).
		Int("skipped_week_limit", s.SkippedWeekLimit).
		Int("errors", len(s.Errors)).
		Str("date_order", string(s.Debug.DateOrder)).
		Msg("import finished")
	return s, nil
}

// collect parses the export and returns the unique album candidates, most
// recent first, filling the debug counters.
func (imp *Importer) collect(run *Run, text string, daysBack int, now time.Time) []chat.Candidate {
	d := &run.summary.Debug

	lines := chat.SplitLines(text)
	d.TotalLines = len(lines)
	d.DateOrder = chat.DetectDateOrderWithDefault(lines, imp.defaultOrder)

	parser := chat.Parser{Order: d.DateOrder, Location: imp.location, Now: now}
	msgs := make([]chat.Message, 0, len(lines))
	for i, line := range lines {
		msg, err := parser.Parse(line)
		if err != nil {
			continue
		}
		msg.LineNum = i
		msgs = append(msgs, msg)
	}
	d.ParsedLines = len(msgs)

	var cutoff time.Time
	if daysBack > 0 {
		cutoff = now.Add(-time.Duration(daysBack) * 24 * time.Hour)
	}
	res := chat.Collect(msgs, chat.CollectOptions{Cutoff: cutoff})
	d.WithinCutoffLines = res.WithinCutoff
	d.LinksFound = res.LinksFound
	d.UniqueCountBeforeInsert = len(res.Candidates)
	for i, c := range res.Candidates {
		if i == 10 {
			break
		}
		d.SampleLinks = append(d.SampleLinks, c.URL)
	}
	return res.Candidates
}

func (imp *Importer) importCandidate(ctx context.Context, run *Run, c chat.Candidate, themeID, defaultProfile *uuid.UUID) {
	s := run.summary

	existing, err := imp.store.FindPickByURL(ctx, c.URL)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		run.fail("Check failed for %s: %v", c.URL, err)
		return
	}

	window := run.WeekWindow(ctx, c.Date, themeID)

	userID := run.ResolveUser(ctx, c.Sender)
	if userID != nil {
		s.Debug.ResolvedUsers = append(s.Debug.ResolvedUsers, fmt.Sprintf("%s -> %s", c.Sender, userID.String()))
	} else {
		userID = defaultProfile
	}
	if userID == nil {
		s.addMissingUser(c.Sender)
		run.fail(`No user mapping and no IMPORT_DEFAULT_USER_ID for sender "%s" (%s)`, c.Sender, c.URL)
		return
	}

	pick := buildPick(c, window, *userID, imp.enrich(ctx, c.URL))

	if existing != nil {
		pick.ID = existing.ID
		if err := imp.store.UpdatePick(ctx, pick); err != nil {
			run.fail("Update failed for %s: %v", c.URL, err)
			return
		}
		s.Updated++
		return
	}

	if !run.weekHasRoom(ctx, window) {
		s.SkippedWeekLimit++
		return
	}
	if err := imp.store.InsertPick(ctx, pick); err != nil {
		run.fail("Insert failed for %s: %v", c.URL, err)
		return
	}
	run.recordInsert(window)
	s.Inserted++
}

// enrich fetches metadata once. Failures are logged and yield nil.
func (imp *Importer) enrich(ctx context.Context, url string) *songlink.Metadata {
	if imp.meta == nil {
		return nil
	}
	meta, err := imp.meta.Metadata(ctx, url)
	if err != nil {
		logging.Warn().Err(err).Str("url", url).Msg("songlink metadata fetch failed")
		return nil
	}
	return meta
}

func buildPick(c chat.Candidate, w WeekWindow, userID uuid.UUID, meta *songlink.Metadata) *db.Pick {
	p := &db.Pick{
		UserID:      userID,
		ThemeID:     w.ThemeID,
		PlatformURL: c.URL,
		Platform:    string(c.Platform),
		PickType:    PickTypeAlbum,
		Title:       FallbackTitle,
		Artist:      c.Sender,
		Album:       ImportedAlbumLabel,
		CreatedAt:   c.Date.UTC(),
	}
	if p.Artist == "" {
		p.Artist = FallbackArtist
	}
	if meta != nil {
		if meta.Title != "" {
			p.Title = meta.Title
		}
		if meta.ArtistName != "" {
			p.Artist = meta.ArtistName
		}
		if meta.ThumbnailURL != "" {
			thumb := meta.ThumbnailURL
			p.AlbumArtworkURL = &thumb
		}
	}
	return p
}
