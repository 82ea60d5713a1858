// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/justestif/albumclub/internal/chat"
	"github.com/justestif/albumclub/internal/songlink"
	"github.com/justestif/albumclub/internal/validation"
)

// PathEnvVar names the YAML file to load, if any.
const PathEnvVar = "ALBUMCLUB_CONFIG"

// emailEnvPrefix maps IMPORT_USER_EMAIL_<KEY> onto import.emails.<key>.
const emailEnvPrefix = "import_user_email_"

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Import   ImportConfig   `koanf:"import"`
	Songlink SonglinkConfig `koanf:"songlink"`
	Spotify  SpotifyConfig  `koanf:"spotify"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds the Postgres connection string. An empty URL is
// allowed; commands that need the database report it as missing.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns" validate:"min=1"`
}

// ServerConfig controls the HTTP listener and admin surface.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
	// AdminToken guards /api/admin routes when set.
	AdminToken     string        `koanf:"admin_token"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	AdminRateLimit int           `koanf:"admin_rate_limit" validate:"min=1"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"min=1024"`
	ShutdownGrace  time.Duration `koanf:"shutdown_grace"`
	// ImportTimeout bounds a single upload request, write deadline included.
	ImportTimeout time.Duration `koanf:"import_timeout"`
}

// ImportConfig holds the importer's defaults and member mapping.
type ImportConfig struct {
	DefaultUserID    string            `koanf:"default_user_id" validate:"omitempty,uuid"`
	Emails           map[string]string `koanf:"emails" validate:"dive,omitempty,email"`
	WeekCap          int               `koanf:"week_cap" validate:"min=1"`
	DefaultDateOrder string            `koanf:"default_date_order" validate:"oneof=mdy dmy"`
	Timezone         string            `koanf:"timezone" validate:"required,timezone"`
	DaysBack         int               `koanf:"days_back" validate:"min=0"`
}

// SonglinkConfig configures the resolver clients.
// ImportRatePerMinute paces the importer's own limiter.
type SonglinkConfig struct {
	BaseURL             string        `koanf:"base_url" validate:"required,url"`
	RatePerMinute       int           `koanf:"rate_per_minute" validate:"min=1"`
	ImportRatePerMinute int           `koanf:"import_rate_per_minute" validate:"min=1"`
	Timeout             time.Duration `koanf:"timeout"`
	CacheTTL            time.Duration `koanf:"cache_ttl"`
}

// SpotifyConfig enables direct album lookups when both values are set.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{MaxConns: 10},
		Server: ServerConfig{
			Addr:           ":8080",
			CORSOrigins:    []string{"*"},
			AdminRateLimit: 10,
			MaxUploadBytes: 20 << 20,
			ShutdownGrace:  10 * time.Second,
			ImportTimeout:  30 * time.Minute,
		},
		Import: ImportConfig{
			WeekCap:          4,
			DefaultDateOrder: string(chat.OrderMDY),
			Timezone:         "UTC",
			DaysBack:         30,
		},
		Songlink: SonglinkConfig{
			BaseURL:             songlink.DefaultBaseURL,
			RatePerMinute:       60,
			ImportRatePerMinute: 60,
			Timeout:             10 * time.Second,
			CacheTTL:            6 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envKeys maps environment variables to config paths.
var envKeys = map[string]string{
	"database_url":                    "database.url",
	"database_max_conns":              "database.max_conns",
	"http_addr":                       "server.addr",
	"admin_token":                     "server.admin_token",
	"cors_origins":                    "server.cors_origins",
	"import_default_user_id":          "import.default_user_id",
	"import_week_cap":                 "import.week_cap",
	"import_default_date_order":       "import.default_date_order",
	"import_timezone":                 "import.timezone",
	"import_days_back":                "import.days_back",
	"songlink_base_url":               "songlink.base_url",
	"songlink_rate_per_minute":        "songlink.rate_per_minute",
	"songlink_import_rate_per_minute": "songlink.import_rate_per_minute",
	"import_request_timeout":          "server.import_timeout",
	"spotify_id":                      "spotify.client_id",
	"spotify_secret":                  "spotify.client_secret",
	"log_level":                       "log.level",
	"log_format":                      "log.format",
}

func envKey(key string) string {
	key = strings.ToLower(key)
	if path, ok := envKeys[key]; ok {
		return path
	}
	if member, ok := strings.CutPrefix(key, emailEnvPrefix); ok && member != "" {
		return "import.emails." + member
	}
	return ""
}

// Load reads configuration. path overrides ALBUMCLUB_CONFIG when non-empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// splitList turns a comma-separated env value into a list.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}

// Location returns the import time zone.
func (c ImportConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DateOrder returns the configured fallback date order.
func (c ImportConfig) DateOrder() chat.DateOrder {
	order, err := chat.ParseDateOrder(c.DefaultDateOrder)
	if err != nil {
		return chat.OrderMDY
	}
	return order
}

// SpotifyEnabled reports whether Spotify credentials are present.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}
