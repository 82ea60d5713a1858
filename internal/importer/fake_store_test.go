package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/songlink"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	picks     map[string]*db.Pick
	themes    []*db.Theme
	authUsers map[string]uuid.UUID
	profiles  map[uuid.UUID]*db.Profile

	themeLookupErr   error
	countErr         error
	insertErr        func(p *db.Pick) error
	createProfileErr error

	countCalls       int
	createThemeCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		picks:     make(map[string]*db.Pick),
		authUsers: make(map[string]uuid.UUID),
		profiles:  make(map[uuid.UUID]*db.Profile),
	}
}

func (f *fakeStore) FindPickByURL(_ context.Context, url string) (*db.Pick, error) {
	p, ok := f.picks[url]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) InsertPick(_ context.Context, p *db.Pick) error {
	if f.insertErr != nil {
		if err := f.insertErr(p); err != nil {
			return err
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.picks[p.PlatformURL] = &cp
	return nil
}

func (f *fakeStore) UpdatePick(_ context.Context, p *db.Pick) error {
	for url, existing := range f.picks {
		if existing.ID == p.ID {
			delete(f.picks, url)
			cp := *p
			f.picks[p.PlatformURL] = &cp
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) CountPicksCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, p := range f.picks {
		if !p.CreatedAt.Before(from) && !p.CreatedAt.After(to) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetTheme(_ context.Context, id uuid.UUID) (*db.Theme, error) {
	for _, t := range f.themes {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) FindThemeCovering(_ context.Context, day time.Time) (*db.Theme, error) {
	if f.themeLookupErr != nil {
		return nil, f.themeLookupErr
	}
	var best *db.Theme
	for _, t := range f.themes {
		if !t.WeekStart.After(day) && !t.WeekEnd.Before(day) {
			if best == nil || t.WeekStart.After(best.WeekStart) {
				best = t
			}
		}
	}
	if best == nil {
		return nil, db.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) FindThemeByBounds(_ context.Context, start, end time.Time) (*db.Theme, error) {
	for _, t := range f.themes {
		if t.WeekStart.Equal(start) && t.WeekEnd.Equal(end) {
			return t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateTheme(_ context.Context, t *db.Theme) error {
	f.createThemeCalls++
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.themes = append(f.themes, &cp)
	return nil
}

func (f *fakeStore) FindAuthUserByEmail(_ context.Context, email string) (*db.AuthUser, error) {
	id, ok := f.authUsers[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &db.AuthUser{ID: id, Email: email}, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*db.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateProfile(_ context.Context, p *db.Profile) error {
	if f.createProfileErr != nil {
		return f.createProfileErr
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

// fakeMetadata returns canned metadata per URL; unknown URLs fail.
type fakeMetadata struct {
	byURL map[string]*songlink.Metadata
	calls int
}

func (f *fakeMetadata) Metadata(_ context.Context, url string) (*songlink.Metadata, error) {
	f.calls++
	if m, ok := f.byURL[url]; ok {
		return m, nil
	}
	return nil, songlink.ErrNoEntity
}
