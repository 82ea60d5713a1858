package web

import (
	"crypto/subtle"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/justestif/albumclub/internal/importer"
	"github.com/justestif/albumclub/internal/logging"
)

// Templates manages HTML template rendering.
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates parses every page in pages/ together with layouts/ and
// partials/.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template)}

	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding layouts: %w", err)
	}
	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding partials: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding pages: %w", err)
	}

	common := append(layouts, partials...)
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		files := append([]string{page}, common...)
		tmpl, err := template.New(name).Funcs(funcs()).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render renders a page inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"join": strings.Join,
	}
}

// ImportPageData is the data for the import page.
type ImportPageData struct {
	Title        string
	NeedsToken   bool
	DaysBack     int
	ThemeID      string
	Error        string
	Summary      *importer.Summary
	DatabaseDown bool
	// LinksPerMinute and Timeout describe how long a large export may take.
	LinksPerMinute int
	Timeout        time.Duration
}

// ImportPage handles GET /admin/import.
func (h *Handlers) ImportPage(w http.ResponseWriter, r *http.Request) {
	h.renderImport(w, http.StatusOK, h.importPageData())
}

// ImportSubmit handles POST /admin/import from the HTML form. The admin
// token is read from the "token" form field.
func (h *Handlers) ImportSubmit(w http.ResponseWriter, r *http.Request) {
	r, cancel := h.importDeadline(w, r)
	defer cancel()
	data := h.importPageData()

	if status, msg := h.parseImportForm(w, r); msg != "" {
		data.Error = msg
		h.renderImport(w, status, data)
		return
	}
	if h.cfg.AdminToken != "" &&
		subtle.ConstantTimeCompare([]byte(r.FormValue("token")), []byte(h.cfg.AdminToken)) != 1 {
		data.Error = "Unauthorized"
		h.renderImport(w, http.StatusUnauthorized, data)
		return
	}
	data.ThemeID = r.FormValue("themeId")
	summary, status, msg := h.runImport(r)
	if msg != "" {
		data.Error = msg
		h.renderImport(w, status, data)
		return
	}
	data.Summary = summary
	h.renderImport(w, http.StatusOK, data)
}

func (h *Handlers) importPageData() ImportPageData {
	return ImportPageData{
		Title:        "Import WhatsApp chat",
		NeedsToken:   h.cfg.AdminToken != "",
		DaysBack:     h.cfg.DefaultDaysBack,
		DatabaseDown: h.deps.Importer == nil,

		LinksPerMinute: h.cfg.ImportPace,
		Timeout:        h.cfg.ImportTimeout,
	}
}

func (h *Handlers) renderImport(w http.ResponseWriter, status int, data ImportPageData) {
	if h.templates == nil {
		http.Error(w, "templates not loaded", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "import", data); err != nil {
		logging.Error().Err(err).Msg("rendering import page")
	}
}
