package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/importer"
	"github.com/justestif/albumclub/internal/logging"
	"github.com/justestif/albumclub/internal/metadata"
	"github.com/justestif/albumclub/internal/validation"
)

const (
	preferredPlatformCookie = "preferred_platform"
	msgMissingCredentials   = "Missing database credentials"
)

// Importer runs a chat import.
type Importer interface {
	Import(ctx context.Context, r io.Reader, opts importer.Options) (*importer.Summary, error)
}

// ThemeAdmin lists and changes weekly themes.
type ThemeAdmin interface {
	List(ctx context.Context) ([]db.Theme, error)
	SetActive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PickFinder loads picks.
type PickFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*db.Pick, error)
	ListForTheme(ctx context.Context, themeID uuid.UUID) ([]db.Pick, error)
}

// AlbumLookup describes a music link.
type AlbumLookup interface {
	Lookup(ctx context.Context, url string) (*metadata.Album, error)
}

// LinkResolver maps a music link to another platform.
type LinkResolver interface {
	ResolvePlatformURL(ctx context.Context, sourceURL, preferredPlatform string) (string, error)
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the handlers. Database-backed fields are nil
// when no database is configured.
type Deps struct {
	Importer Importer
	Themes   ThemeAdmin
	Picks    PickFinder
	Albums   AlbumLookup
	Links    LinkResolver
	DB       Pinger
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	deps      Deps
	templates *Templates
	cfg       ServerConfig
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, templates *Templates, cfg ServerConfig) *Handlers {
	return &Handlers{deps: deps, templates: templates, cfg: cfg}
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "not configured"}
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

// ImportWhatsApp handles POST /api/admin/import-whatsapp.
func (h *Handlers) ImportWhatsApp(w http.ResponseWriter, r *http.Request) {
	r, cancel := h.importDeadline(w, r)
	defer cancel()

	if status, msg := h.parseImportForm(w, r); msg != "" {
		writeError(w, status, msg)
		return
	}
	summary, status, msg := h.runImport(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// importDeadline lifts the server's read and write deadlines to
// ImportTimeout and bounds the request context by the same amount.
func (h *Handlers) importDeadline(w http.ResponseWriter, r *http.Request) (*http.Request, context.CancelFunc) {
	if h.cfg.ImportTimeout <= 0 {
		return r, func() {}
	}
	deadline := time.Now().Add(h.cfg.ImportTimeout)
	rc := http.NewResponseController(w)
	if err := rc.SetReadDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("extending read deadline")
	}
	if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("extending write deadline")
	}
	ctx, cancel := context.WithDeadline(r.Context(), deadline)
	return r.WithContext(ctx), cancel
}

func (h *Handlers) parseImportForm(w http.ResponseWriter, r *http.Request) (int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return http.StatusRequestEntityTooLarge, "File too large"
		}
		return http.StatusBadRequest, "Invalid form data"
	}
	return http.StatusOK, ""
}

// runImport runs the importer on a parsed upload form. On failure it returns
// the status and message to report.
func (h *Handlers) runImport(r *http.Request) (*importer.Summary, int, string) {
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, "No file provided"
	}
	defer file.Close()

	if h.deps.Importer == nil {
		return nil, http.StatusInternalServerError, msgMissingCredentials
	}

	opts, err := h.importOptions(r.FormValue("themeId"), r.FormValue("daysBack"))
	if err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	summary, err := h.deps.Importer.Import(r.Context(), file, opts)
	switch {
	case errors.Is(err, importer.ErrMissingCredentials):
		return nil, http.StatusInternalServerError, msgMissingCredentials
	case errors.Is(err, context.DeadlineExceeded):
		logging.Ctx(r.Context()).Warn().Dur("timeout", h.cfg.ImportTimeout).Msg("import timed out")
		return nil, http.StatusGatewayTimeout, "Import timed out"
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("import failed")
		return nil, http.StatusInternalServerError, err.Error()
	}
	return summary, http.StatusOK, ""
}

func (h *Handlers) importOptions(themeID, daysBack string) (importer.Options, error) {
	opts := importer.Options{DaysBack: h.cfg.DefaultDaysBack}

	if themeID = strings.TrimSpace(themeID); themeID != "" {
		if err := validation.Var("themeId", themeID, "uuid"); err != nil {
			return opts, err
		}
		id := uuid.MustParse(themeID)
		opts.ThemeID = &id
	}

	if daysBack = strings.TrimSpace(daysBack); daysBack != "" {
		n, err := strconv.Atoi(daysBack)
		if err != nil {
			return opts, errors.New("daysBack must be an integer")
		}
		if err := validation.Var("daysBack", n, "max=36500"); err != nil {
			return opts, err
		}
		opts.DaysBack = n
	}
	return opts, nil
}

type setActiveThemeRequest struct {
	ThemeID string `json:"themeId" validate:"required,uuid"`
}

// SetActiveTheme handles POST /api/admin/set-active-theme.
func (h *Handlers) SetActiveTheme(w http.ResponseWriter, r *http.Request) {
	var req setActiveThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ThemeID == "" {
		writeError(w, http.StatusBadRequest, "themeId is required")
		return
	}
	if err := validation.Var("themeId", req.ThemeID, "uuid"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.deps.Themes == nil {
		writeError(w, http.StatusInternalServerError, msgMissingCredentials)
		return
	}

	err := h.deps.Themes.SetActive(r.Context(), uuid.MustParse(req.ThemeID))
	h.writeThemeResult(w, r, err, "set active theme")
}

// DeleteTheme handles DELETE /api/admin/themes/{id}.
func (h *Handlers) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme id")
		return
	}
	if h.deps.Themes == nil {
		writeError(w, http.StatusInternalServerError, msgMissingCredentials)
		return
	}

	err = h.deps.Themes.Delete(r.Context(), id)
	h.writeThemeResult(w, r, err, "delete theme")
}

func (h *Handlers) writeThemeResult(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Theme not found")
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("action", action).Msg("theme update failed")
		writeError(w, http.StatusInternalServerError, "Failed to "+action)
	default:
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

type themeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	WeekStart string    `json:"weekStartDate"`
	WeekEnd   string    `json:"weekEndDate"`
	IsActive  bool      `json:"isActive"`
}

type pickResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	ThemeID      *uuid.UUID `json:"weeklyThemeId"`
	PlatformURL  string     `json:"platformUrl"`
	Platform     string     `json:"platform"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"`
	AlbumArtwork *string    `json:"albumArtwork"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ListThemes handles GET /api/admin/themes.
func (h *Handlers) ListThemes(w http.ResponseWriter, r *http.Request) {
	if h.deps.Themes == nil {
		writeError(w, http.StatusInternalServerError, msgMissingCredentials)
		return
	}
	themes, err := h.deps.Themes.List(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("listing themes")
		writeError(w, http.StatusInternalServerError, "Failed to list themes")
		return
	}

	out := make([]themeResponse, len(themes))
	for i, t := range themes {
		out[i] = themeResponse{
			ID:        t.ID,
			Name:      t.Name,
			WeekStart: t.WeekStart.Format(db.DateFormat),
			WeekEnd:   t.WeekEnd.Format(db.DateFormat),
			IsActive:  t.IsActive,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ThemePicks handles GET /api/admin/themes/{id}/picks.
func (h *Handlers) ThemePicks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme id")
		return
	}
	if h.deps.Picks == nil {
		writeError(w, http.StatusInternalServerError, msgMissingCredentials)
		return
	}
	picks, err := h.deps.Picks.ListForTheme(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("theme_id", id.String()).Msg("listing picks")
		writeError(w, http.StatusInternalServerError, "Failed to list picks")
		return
	}

	out := make([]pickResponse, len(picks))
	for i, p := range picks {
		out[i] = pickResponse{
			ID:           p.ID,
			UserID:       p.UserID,
			ThemeID:      p.ThemeID,
			PlatformURL:  p.PlatformURL,
			Platform:     p.Platform,
			Title:        p.Title,
			Artist:       p.Artist,
			AlbumArtwork: p.AlbumArtworkURL,
			CreatedAt:    p.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// AlbumMetadata handles GET /api/album-metadata?url=.
func (h *Handlers) AlbumMetadata(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if h.deps.Albums == nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch album metadata")
		return
	}

	album, err := h.deps.Albums.Lookup(r.Context(), url)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("url", url).Msg("album metadata lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch album metadata")
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// LinkBySource handles GET /link?url=&platform=.
func (h *Handlers) LinkBySource(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("url"))
	if source == "" {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		source = "https://" + strings.TrimLeft(source, "/")
	}
	http.Redirect(w, r, h.preferredURL(r, source), http.StatusTemporaryRedirect)
}

// LinkByPick handles GET /link/{pickID}.
func (h *Handlers) LinkByPick(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "pickID"))
	if err != nil || h.deps.Picks == nil {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	pick, err := h.deps.Picks.Get(r.Context(), id)
	if err != nil || pick.PlatformURL == "" {
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			logging.Ctx(r.Context()).Warn().Err(err).Str("pick_id", id.String()).Msg("loading pick")
		}
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	http.Redirect(w, r, h.preferredURL(r, pick.PlatformURL), http.StatusTemporaryRedirect)
}

// preferredURL returns the link on the caller's preferred platform, or
// source when there is no preference or it cannot be resolved.
func (h *Handlers) preferredURL(r *http.Request, source string) string {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		if c, err := r.Cookie(preferredPlatformCookie); err == nil {
			platform = c.Value
		}
	}
	if platform == "" || h.deps.Links == nil {
		return source
	}

	target, err := h.deps.Links.ResolvePlatformURL(r.Context(), source, platform)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("url", source).Msg("unable to resolve platform link")
		return source
	}
	if target == "" {
		return source
	}
	return target
}

type preferenceRequest struct {
	PreferredPlatform string `json:"preferredPlatform" validate:"omitempty,oneof=spotify apple_music youtube_music tidal soundcloud deezer bandcamp"`
}

// SetPreference handles POST /api/preferences. An empty platform clears the
// cookie.
func (h *Handlers) SetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported platform")
		return
	}

	cookie := &http.Cookie{
		Name:     preferredPlatformCookie,
		Value:    req.PreferredPlatform,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	}
	if req.PreferredPlatform == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
