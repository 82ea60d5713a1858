//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// newTestDB starts a throwaway Postgres and returns a migrated DB.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	skipIfNoDocker(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "albumclub",
			"POSTGRES_PASSWORD": "albumclub",
			"POSTGRES_DB":       "albumclub",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	url := fmt.Sprintf("postgres://albumclub:albumclub@%s:%s/albumclub?sslmode=disable", host, port.Port())
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(database.Close)

	if _, err := database.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return database
}

func TestIntegration_Migrate_Idempotent(t *testing.T) {
	database := newTestDB(t)

	applied, err := database.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate() applied %v, want none", applied)
	}
}

func TestIntegration_ImportFlow(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	store := database.Store()

	authID := uuid.New()
	if _, err := database.Pool().Exec(ctx, `INSERT INTO auth.users (id, email) VALUES ($1, $2)`, authID, "dave@example.com"); err != nil {
		t.Fatalf("seeding auth user: %v", err)
	}

	u, err := store.FindAuthUserByEmail(ctx, "dave@example.com")
	if err != nil || u.ID != authID {
		t.Fatalf("FindAuthUserByEmail() = %+v, %v", u, err)
	}
	if _, err := store.FindAuthUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindAuthUserByEmail(unknown) error = %v, want ErrNotFound", err)
	}

	if _, err := store.GetProfile(ctx, authID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProfile() before create error = %v, want ErrNotFound", err)
	}
	if err := store.CreateProfile(ctx, &Profile{ID: authID, DisplayName: "David Thomas"}); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	start := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	theme := &Theme{Name: "Imported (week of 2024-01-12)", WeekStart: start, WeekEnd: end}
	if err := store.CreateTheme(ctx, theme); err != nil {
		t.Fatalf("CreateTheme() error = %v", err)
	}

	covering, err := store.FindThemeCovering(ctx, start.AddDate(0, 0, 3))
	if err != nil || covering.ID != theme.ID {
		t.Fatalf("FindThemeCovering() = %+v, %v", covering, err)
	}
	byBounds, err := store.FindThemeByBounds(ctx, start, end)
	if err != nil || byBounds.ID != theme.ID {
		t.Fatalf("FindThemeByBounds() = %+v, %v", byBounds, err)
	}
	if !byBounds.WeekStart.Equal(start) {
		t.Errorf("WeekStart = %v, want %v", byBounds.WeekStart, start)
	}

	created := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	pick := &Pick{
		UserID:      authID,
		ThemeID:     &theme.ID,
		PlatformURL: "https://open.spotify.com/album/abc123",
		Platform:    "spotify",
		PickType:    "album",
		Title:       "Imported album",
		Artist:      "Dave",
		Album:       "Imported via WhatsApp",
		CreatedAt:   created,
	}
	if err := store.InsertPick(ctx, pick); err != nil {
		t.Fatalf("InsertPick() error = %v", err)
	}
	if err := store.InsertPick(ctx, &Pick{UserID: authID, PlatformURL: pick.PlatformURL, Platform: "spotify", PickType: "album"}); err == nil {
		t.Error("InsertPick() with duplicate URL should fail")
	}

	got, err := store.FindPickByURL(ctx, pick.PlatformURL)
	if err != nil {
		t.Fatalf("FindPickByURL() error = %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	got.Title = "Real Title"
	if err := store.UpdatePick(ctx, got); err != nil {
		t.Fatalf("UpdatePick() error = %v", err)
	}
	again, _ := database.Picks().Get(ctx, got.ID)
	if again.Title != "Real Title" {
		t.Errorf("Title after update = %q", again.Title)
	}

	n, err := store.CountPicksCreatedBetween(ctx, start, end.Add(24*time.Hour-time.Millisecond))
	if err != nil || n != 1 {
		t.Errorf("CountPicksCreatedBetween() = %d, %v, want 1", n, err)
	}

	if err := database.Themes().SetActive(ctx, theme.ID); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if err := database.Themes().Delete(ctx, theme.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	detached, _ := database.Picks().Get(ctx, got.ID)
	if detached.ThemeID != nil {
		t.Errorf("ThemeID after theme delete = %v, want nil", detached.ThemeID)
	}
	if err := database.Themes().Delete(ctx, theme.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
