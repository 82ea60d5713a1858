package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justestif/albumclub/internal/chat"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Import.WeekCap != 4 || cfg.Import.DaysBack != 30 {
		t.Errorf("Import = %+v", cfg.Import)
	}
	if cfg.Songlink.RatePerMinute != 60 || cfg.Songlink.CacheTTL != 6*time.Hour {
		t.Errorf("Songlink = %+v", cfg.Songlink)
	}
	if cfg.Songlink.ImportRatePerMinute != 60 || cfg.Server.ImportTimeout != 30*time.Minute {
		t.Errorf("import pacing = %d/min, %v", cfg.Songlink.ImportRatePerMinute, cfg.Server.ImportTimeout)
	}
	if cfg.SpotifyEnabled() {
		t.Error("SpotifyEnabled() = true without credentials")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/albumclub")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("IMPORT_WEEK_CAP", "6")
	t.Setenv("IMPORT_DEFAULT_DATE_ORDER", "dmy")
	t.Setenv("IMPORT_TIMEZONE", "Europe/Berlin")
	t.Setenv("IMPORT_USER_EMAIL_ESTIF", "estif@example.com")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SPOTIFY_ID", "id")
	t.Setenv("SPOTIFY_SECRET", "secret")
	t.Setenv("SONGLINK_IMPORT_RATE_PER_MINUTE", "20")
	t.Setenv("IMPORT_REQUEST_TIMEOUT", "1h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/albumclub" || cfg.Server.Addr != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Import.WeekCap != 6 {
		t.Errorf("WeekCap = %d, want 6", cfg.Import.WeekCap)
	}
	if cfg.Import.DateOrder() != chat.OrderDMY {
		t.Errorf("DateOrder() = %q", cfg.Import.DateOrder())
	}
	loc, err := cfg.Import.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
	if got := cfg.Import.Emails["estif"]; got != "estif@example.com" {
		t.Errorf("Emails[estif] = %q", got)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Songlink.ImportRatePerMinute != 20 || cfg.Songlink.RatePerMinute != 60 {
		t.Errorf("Songlink = %+v", cfg.Songlink)
	}
	if cfg.Server.ImportTimeout != time.Hour {
		t.Errorf("ImportTimeout = %v, want 1h", cfg.Server.ImportTimeout)
	}
	if !cfg.SpotifyEnabled() {
		t.Error("SpotifyEnabled() = false")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albumclub.yaml")
	yaml := `
server:
  addr: ":7000"
import:
  week_cap: 3
  days_back: 0
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMPORT_WEEK_CAP", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Import.WeekCap != 5 {
		t.Errorf("WeekCap = %d, want env override 5", cfg.Import.WeekCap)
	}
	if cfg.Import.DaysBack != 0 || cfg.Log.Level != "debug" {
		t.Errorf("Import.DaysBack = %d Log.Level = %q", cfg.Import.DaysBack, cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad user id", "IMPORT_DEFAULT_USER_ID", "not-a-uuid", "UUID"},
		{"bad order", "IMPORT_DEFAULT_DATE_ORDER", "ymd", "one of"},
		{"bad zone", "IMPORT_TIMEZONE", "Mars/Olympus", "time zone"},
		{"zero cap", "IMPORT_WEEK_CAP", "0", "at least"},
		{"zero import rate", "SONGLINK_IMPORT_RATE_PER_MINUTE", "0", "at least"},
		{"bad email", "IMPORT_USER_EMAIL_ZEKE", "zeke", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil for missing file")
	}
}
