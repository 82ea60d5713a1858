// Command albumclub imports WhatsApp chat exports into AlbumClub and serves
// the admin API.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/justestif/albumclub/internal/config"
	"github.com/justestif/albumclub/internal/db"
	"github.com/justestif/albumclub/internal/importer"
	"github.com/justestif/albumclub/internal/logging"
	"github.com/justestif/albumclub/internal/metadata"
	"github.com/justestif/albumclub/internal/songlink"
	"github.com/justestif/albumclub/internal/spotify"
	"github.com/justestif/albumclub/internal/web"
	webfs "github.com/justestif/albumclub/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "albumclub",
		Usage: "Import WhatsApp album picks and serve the AlbumClub admin API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (defaults to $" + config.PathEnvVar + ")",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			importCommand(),
			migrateCommand(),
		},
	}
	return app.Run(context.Background(), os.Args)
}

// services are built from config and shared by all commands. Database-backed
// fields are nil when DATABASE_URL is empty.
type services struct {
	cfg      *config.Config
	db       *db.DB
	songlink *songlink.Client
	// importLinks is the importer's client, paced separately from redirects.
	importLinks *songlink.Client
	spotify     *spotify.Client
	metadata    *metadata.Service
	importer    *importer.Importer
}

func (s *services) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func setup(ctx context.Context, cmd *cli.Command, defaultFormat string) (*services, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	format := cfg.Log.Format
	if os.Getenv("LOG_FORMAT") == "" && defaultFormat != "" {
		format = defaultFormat
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: format})

	s := &services{cfg: cfg}

	if cfg.Database.URL != "" {
		s.db, err = db.New(ctx, cfg.Database.URL, db.WithMaxConns(cfg.Database.MaxConns))
		if err != nil {
			return nil, err
		}
	} else {
		logging.Warn().Msg("DATABASE_URL not set; database features are disabled")
	}

	s.songlink = songlink.NewClient(songlink.Config{
		Name:          "songlink",
		BaseURL:       cfg.Songlink.BaseURL,
		RatePerMinute: cfg.Songlink.RatePerMinute,
		Timeout:       cfg.Songlink.Timeout,
		CacheTTL:      cfg.Songlink.CacheTTL,
	})
	s.importLinks = songlink.NewClient(songlink.Config{
		Name:          "songlink_import",
		BaseURL:       cfg.Songlink.BaseURL,
		RatePerMinute: cfg.Songlink.ImportRatePerMinute,
		Timeout:       cfg.Songlink.Timeout,
		CacheTTL:      cfg.Songlink.CacheTTL,
	})

	var albums metadata.SpotifyAlbums
	if cfg.SpotifyEnabled() {
		s.spotify, err = spotify.NewAppClient(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
		if err != nil {
			s.Close()
			return nil, err
		}
		albums = s.spotify
	}
	s.metadata = metadata.NewService(albums, s.songlink)

	loc, err := cfg.Import.Location()
	if err != nil {
		s.Close()
		return nil, err
	}
	var store importer.Store
	if s.db != nil {
		store = s.db.Store()
	}
	s.importer = importer.New(store, s.importLinks,
		importer.WithWeekCap(cfg.Import.WeekCap),
		importer.WithRoster(importer.RosterWithEmails(importer.DefaultRoster(), cfg.Import.Emails)),
		importer.WithDefaultUserID(cfg.Import.DefaultUserID),
		importer.WithDefaultDateOrder(cfg.Import.DateOrder()),
		importer.WithLocation(loc),
	)
	return s, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending migrations before serving",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := setup(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()

			if cmd.Bool("migrate") && s.db != nil {
				if _, err := s.db.Migrate(ctx); err != nil {
					return err
				}
			}

			templates, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}

			deps := web.Deps{
				Albums: s.metadata,
				Links:  s.songlink,
			}
			if s.db != nil {
				deps.Importer = s.importer
				deps.Themes = s.db.Themes()
				deps.Picks = s.db.Picks()
				deps.DB = s.db
			}

			server, err := web.NewServer(web.ServerConfig{
				Addr:            s.cfg.Server.Addr,
				AdminToken:      s.cfg.Server.AdminToken,
				CORSOrigins:     s.cfg.Server.CORSOrigins,
				AdminRateLimit:  s.cfg.Server.AdminRateLimit,
				MaxUploadBytes:  s.cfg.Server.MaxUploadBytes,
				DefaultDaysBack: s.cfg.Import.DaysBack,
				ImportTimeout:   s.cfg.Server.ImportTimeout,
				ImportPace:      s.cfg.Songlink.ImportRatePerMinute,
				ShutdownGrace:   s.cfg.Server.ShutdownGrace,
				TemplatesFS:     templates,
			}, deps)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return server.Run(ctx)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a WhatsApp chat export file",
		ArgsUsage: "<export.txt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "theme",
				Usage: "Theme id to attach every pick to",
			},
			&cli.IntFlag{
				Name:  "days-back",
				Usage: "Only import messages from the last N days (0 imports everything)",
				Value: -1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("%w: pass the export file path", importer.ErrNoInput)
			}

			s, err := setup(ctx, cmd, "console")
			if err != nil {
				return err
			}
			defer s.Close()

			opts := importer.Options{DaysBack: s.cfg.Import.DaysBack}
			if n := cmd.Int("days-back"); n >= 0 {
				opts.DaysBack = int(n)
			}
			if theme := cmd.String("theme"); theme != "" {
				id, err := parseThemeID(theme)
				if err != nil {
					return err
				}
				opts.ThemeID = &id
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close()

			summary, err := s.importer.Import(ctx, f, opts)
			if summary != nil {
				out, mErr := json.MarshalIndent(summary, "", "  ")
				if mErr != nil {
					return fmt.Errorf("encoding summary: %w", mErr)
				}
				fmt.Println(string(out))
			}
			return err
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := setup(ctx, cmd, "console")
			if err != nil {
				return err
			}
			defer s.Close()

			if s.db == nil {
				return importer.ErrMissingCredentials
			}
			applied, err := s.db.Migrate(ctx)
			if err != nil {
				return err
			}
			logging.Info().Ints("applied", applied).Msg("migrations complete")
			return nil
		},
	}
}
