// Package web serves the AlbumClub admin API, the link resolver and the
// import page.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justestif/albumclub/internal/logging"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = ":8080"
	// DefaultImportTimeout bounds an upload and its link lookups.
	DefaultImportTimeout = 30 * time.Minute
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr string
	// AdminToken, when set, must be sent as a bearer token on admin routes.
	AdminToken      string
	CORSOrigins     []string
	AdminRateLimit  int // requests per minute per IP
	MaxUploadBytes  int64
	DefaultDaysBack int
	// ImportTimeout replaces the server write deadline on import routes.
	ImportTimeout time.Duration
	// ImportPace is the importer's link lookups per minute, shown on the page.
	ImportPace    int
	ShutdownGrace time.Duration
	TemplatesFS   fs.FS
}

// Server is the HTTP server for the web application.
type Server struct {
	cfg      ServerConfig
	router   chi.Router
	server   *http.Server
	handlers *Handlers
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.AdminRateLimit <= 0 {
		cfg.AdminRateLimit = 10
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}

	var templates *Templates
	if cfg.TemplatesFS != nil {
		t, err := NewTemplates(cfg.TemplatesFS)
		if err != nil {
			return nil, fmt.Errorf("loading templates: %w", err)
		}
		templates = t
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(deps, templates, cfg),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handlers.Health)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/link", s.handlers.LinkBySource)
	s.router.Get("/link/{pickID}", s.handlers.LinkByPick)
	s.router.Get("/api/album-metadata", s.handlers.AlbumMetadata)
	s.router.Post("/api/preferences", s.handlers.SetPreference)

	limit := httprate.Limit(s.cfg.AdminRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)

	s.router.Get("/admin/import", s.handlers.ImportPage)
	s.router.With(limit).Post("/admin/import", s.handlers.ImportSubmit)

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(limit)
		r.Use(requireAdmin(s.cfg.AdminToken))
		r.Post("/import-whatsapp", s.handlers.ImportWhatsApp)
		r.Post("/set-active-theme", s.handlers.SetActiveTheme)
		r.Get("/themes", s.handlers.ListThemes)
		r.Get("/themes/{id}/picks", s.handlers.ThemePicks)
		r.Delete("/themes/{id}", s.handlers.DeleteTheme)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.server.Addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down when ctx is cancelled or the
// process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logging.Info().Msg("server stopped")
	return nil
}
