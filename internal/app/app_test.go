package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// testSettings returns defaults rooted in a temp dir with file and console
// logging off.
func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	settings, err := conf.DefaultSettings()
	require.NoError(t, err)

	dir := t.TempDir()
	settings.Version = "test"
	settings.Database.SQLite.Path = filepath.Join(dir, "data", "mshd.db")
	settings.Media.PublicDir = filepath.Join(dir, "public")
	settings.Media.ImagesDir = filepath.Join(dir, "public", "images")
	settings.Media.ThumbnailsDir = filepath.Join(dir, "public", "thumbnails")
	settings.Geocoder.Provider = conf.GeocoderNone
	settings.Server.Host = "127.0.0.1"
	settings.Server.Port = 0
	settings.Logging.Console = &logger.ConsoleOutput{Enabled: false}
	settings.Logging.FileOutput = &logger.FileOutput{Enabled: false}
	return settings
}

func TestNewAndServe(t *testing.T) {
	settings := testSettings(t)
	settings.Auth.JWTSecret = ""

	a, err := New(t.Context(), settings)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	e := a.Server().Echo()

	health := httptest.NewRecorder()
	e.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, health.Code)

	login := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"name":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(login, req)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())

	metrics := httptest.NewRecorder()
	e.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, metrics.Code)
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestNewRejectsBadTimezone(t *testing.T) {
	settings := testSettings(t)
	settings.Grouping.Timezone = "Mars/Olympus"

	_, err := New(t.Context(), settings)
	require.Error(t, err)
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)

	db, err := Migrate(t.Context(), settings, log)
	require.NoError(t, err)
	require.NoError(t, db.Ping(t.Context()))
	require.NoError(t, db.Close())

	// A second run over the same file is a no-op.
	db, err = Migrate(t.Context(), settings, log)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestMigrateUnsupportedDatabase(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Database.Type = "oracle"
	_, err := Migrate(t.Context(), settings, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.Error(t, err)
}
