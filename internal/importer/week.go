package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/db"
)

// WeekWindow is a Friday-to-Thursday bucket, optionally bound to a theme.
type WeekWindow struct {
	ThemeID *uuid.UUID
	Start   time.Time // midnight UTC of the first day
	End     time.Time // midnight UTC of the last day
}

// FridayWeekBounds returns the window containing t's UTC calendar date. A
// Friday starts its own window.
func FridayWeekBounds(t time.Time) WeekWindow {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	diff := (int(day.Weekday()) - int(time.Friday) + 7) % 7
	start := day.AddDate(0, 0, -diff)
	return WeekWindow{Start: start, End: start.AddDate(0, 0, 6)}
}

// StartISO returns the first day as YYYY-MM-DD.
func (w WeekWindow) StartISO() string { return w.Start.Format(db.DateFormat) }

// EndISO returns the last day as YYYY-MM-DD.
func (w WeekWindow) EndISO() string { return w.End.Format(db.DateFormat) }

// CreatedRange returns the inclusive created_at range the week cap counts:
// start 00:00:00.000 through end 23:59:59.999 UTC.
func (w WeekWindow) CreatedRange() (from, to time.Time) {
	from = dateOnly(w.Start)
	to = dateOnly(w.End).Add(24*time.Hour - time.Millisecond)
	return from, to
}

func (w WeekWindow) key() string {
	return w.StartISO() + ":" + w.EndISO()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func windowFromTheme(t *db.Theme) WeekWindow {
	id := t.ID
	return WeekWindow{ThemeID: &id, Start: dateOnly(t.WeekStart), End: dateOnly(t.WeekEnd)}
}
