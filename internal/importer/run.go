package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/logging"
)

// Run holds the state of one import: lookup caches and the summary being
// built. A Run is used by a single goroutine and discarded afterwards.
type Run struct {
	store   Store
	roster  []Member
	weekCap int
	summary *Summary

	themeByWeek      map[string]WeekWindow // keyed by computed week start
	placeholderTried map[string]bool
	themeBounds      map[uuid.UUID]*WeekWindow
	weekCounts       map[string]int

	authByEmail     map[string]*uuid.UUID
	profileByAuth   map[uuid.UUID]*uuid.UUID
	profileBySender map[string]*uuid.UUID
}

func newRun(store Store, roster []Member, weekCap int) *Run {
	return &Run{
		store:            store,
		roster:           roster,
		weekCap:          weekCap,
		summary:          newSummary(),
		themeByWeek:      make(map[string]WeekWindow),
		placeholderTried: make(map[string]bool),
		themeBounds:      make(map[uuid.UUID]*WeekWindow),
		weekCounts:       make(map[string]int),
		authByEmail:      make(map[string]*uuid.UUID),
		profileByAuth:    make(map[uuid.UUID]*uuid.UUID),
		profileBySender:  make(map[string]*uuid.UUID),
	}
}

// fail records a soft error.
func (r *Run) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.summary.Errors = append(r.summary.Errors, msg)
	logging.Warn().Str("component", "importer").Msg(msg)
}

// WeekWindow resolves the bucket for a pick posted at date. An explicit
// theme wins when it exists; otherwise the theme covering the Friday week is
// used, and weeks without one get an inactive placeholder theme.
func (r *Run) WeekWindow(ctx context.Context, date time.Time, explicitTheme *uuid.UUID) WeekWindow {
	if explicitTheme != nil {
		if w := r.themeWindow(ctx, *explicitTheme); w != nil {
			return *w
		}
	}

	w := r.themeForDate(ctx, date)
	if w.ThemeID != nil {
		return w
	}
	return r.ensurePlaceholder(ctx, w)
}

func (r *Run) themeWindow(ctx context.Context, id uuid.UUID) *WeekWindow {
	if w, ok := r.themeBounds[id]; ok {
		return w
	}
	theme, err := r.store.GetTheme(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			r.fail("Theme bounds lookup failed for %s: %v", id, err)
		}
		r.themeBounds[id] = nil
		return nil
	}
	w := windowFromTheme(theme)
	r.themeBounds[id] = &w
	return &w
}

func (r *Run) themeForDate(ctx context.Context, date time.Time) WeekWindow {
	computed := FridayWeekBounds(date)
	key := computed.StartISO()
	if w, ok := r.themeByWeek[key]; ok {
		return w
	}

	theme, err := r.store.FindThemeCovering(ctx, computed.Start)
	switch {
	case errors.Is(err, db.ErrNotFound):
		r.themeByWeek[key] = computed
		return computed
	case err != nil:
		r.fail("Theme lookup failed for %s: %v", key, err)
		// A failed lookup leaves the week without a theme for the rest of the run.
		r.themeByWeek[key] = computed
		r.placeholderTried[key] = true
		return computed
	}

	w := windowFromTheme(theme)
	r.themeByWeek[key] = w
	return w
}

func (r *Run) ensurePlaceholder(ctx context.Context, w WeekWindow) WeekWindow {
	key := w.StartISO()
	if r.placeholderTried[key] {
		return r.themeByWeek[key]
	}
	r.placeholderTried[key] = true

	existing, err := r.store.FindThemeByBounds(ctx, w.Start, w.End)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		r.fail("Placeholder theme lookup failed for %s: %v", key, err)
	}
	if existing != nil {
		id := existing.ID
		w.ThemeID = &id
		r.themeByWeek[key] = w
		return w
	}

	theme := &db.Theme{
		Name:      "Imported (week of " + key + ")",
		WeekStart: w.Start,
		WeekEnd:   w.End,
		IsActive:  false,
	}
	if err := r.store.CreateTheme(ctx, theme); err != nil {
		r.fail("Placeholder theme insert failed for %s: %v", key, err)
		return w
	}
	id := theme.ID
	w.ThemeID = &id
	r.themeByWeek[key] = w
	return w
}

// weekHasRoom reports whether another pick may be inserted into w. The
// stored count is read once per window; recordInsert keeps it current.
func (r *Run) weekHasRoom(ctx context.Context, w WeekWindow) bool {
	return r.weekCount(ctx, w) < r.weekCap
}

func (r *Run) recordInsert(w WeekWindow) {
	r.weekCounts[w.key()]++
}

func (r *Run) weekCount(ctx context.Context, w WeekWindow) int {
	key := w.key()
	if n, ok := r.weekCounts[key]; ok {
		return n
	}
	from, to := w.CreatedRange()
	n, err := r.store.CountPicksCreatedBetween(ctx, from, to)
	if err != nil {
		r.fail("Week count failed for %s-%s: %v", w.StartISO(), w.EndISO(), err)
		n = 0
	}
	r.weekCounts[key] = n
	return n
}

// ResolveUser maps a chat sender to a profile id via the roster, the
// member's email and the identity provider, creating the profile if needed.
// It returns nil when the sender cannot be mapped.
func (r *Run) ResolveUser(ctx context.Context, sender string) *uuid.UUID {
	if id, ok := r.profileBySender[sender]; ok {
		return id
	}

	d := &r.summary.Debug
	member := matchMember(r.roster, sender)
	key, email := "none", ""
	if member != nil {
		key, email = member.Key, member.Email
	}
	trace := []string{"sender:" + sender, "key:" + key, "email:" + orNone(email)}

	if email == "" {
		d.MissingEmails = append(d.MissingEmails, sender)
	} else {
		authID := r.authUserForEmail(ctx, email)
		trace = append(trace, "authId:"+idOrNone(authID))
		if authID != nil {
			profileID := r.ensureProfile(ctx, *authID, member)
			trace = append(trace, "profile:"+idOrNone(profileID))
			r.profileBySender[sender] = profileID
			r.addTrace(trace)
			return profileID
		}
		d.MissingAuthUsers = append(d.MissingAuthUsers, sender)
	}

	r.profileBySender[sender] = nil
	d.UnmatchedSenders = append(d.UnmatchedSenders, sender)
	r.addTrace(append(trace, "profile:none"))
	return nil
}

func (r *Run) addTrace(parts []string) {
	t := strings.Join(parts, "|")
	r.summary.Debug.MappingTraces = append(r.summary.Debug.MappingTraces, t)
	r.summary.MappingTraces = append(r.summary.MappingTraces, t)
}

func (r *Run) authUserForEmail(ctx context.Context, email string) *uuid.UUID {
	if id, ok := r.authByEmail[email]; ok {
		return id
	}
	u, err := r.store.FindAuthUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			logging.Warn().Err(err).Str("email", email).Msg("auth user lookup failed")
		}
		r.authByEmail[email] = nil
		return nil
	}
	id := u.ID
	r.authByEmail[email] = &id
	return &id
}

// ensureProfile returns the profile for authID, creating it when missing.
func (r *Run) ensureProfile(ctx context.Context, authID uuid.UUID, member *Member) *uuid.UUID {
	if id, ok := r.profileByAuth[authID]; ok {
		return id
	}

	if p, err := r.store.GetProfile(ctx, authID); err == nil {
		id := p.ID
		r.profileByAuth[authID] = &id
		return &id
	} else if !errors.Is(err, db.ErrNotFound) {
		logging.Warn().Err(err).Stringer("auth_id", authID).Msg("profile lookup failed")
	}

	name := "Imported User"
	if member != nil {
		name = member.DisplayName
		if name == "" {
			name = member.Key
		}
	}
	p := &db.Profile{ID: authID, DisplayName: name}
	if err := r.store.CreateProfile(ctx, p); err != nil {
		d := &r.summary.Debug
		d.ProfileInsertFailures = append(d.ProfileInsertFailures, fmt.Sprintf("%s:%v", authID, err))
		r.profileByAuth[authID] = nil
		return nil
	}
	id := p.ID
	r.profileByAuth[authID] = &id
	return &id
}

// defaultProfile validates the configured catch-all user and ensures its
// profile. Problems are recorded and disable the fallback.
func (r *Run) defaultProfile(ctx context.Context, raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, ok := parseUUID(raw)
	if !ok {
		r.fail(`IMPORT_DEFAULT_USER_ID is not a valid UUID: "%s"`, raw)
		return nil
	}
	profileID := r.ensureProfile(ctx, id, nil)
	if profileID == nil {
		r.fail("Could not ensure profile for IMPORT_DEFAULT_USER_ID; will treat as missing")
	}
	return profileID
}

// parseUUID accepts only the canonical 36-character form.
func parseUUID(s string) (uuid.UUID, bool) {
	if len(s) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func idOrNone(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
