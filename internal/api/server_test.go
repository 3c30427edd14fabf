package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/datastore"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/incident"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/observability"
)

func newTestServer(t *testing.T, settings *conf.Settings) *Server {
	t.Helper()

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	mgr, err := datastore.Open(&conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "server.db")},
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(t.Context()))

	store := repository.NewStore(mgr.DB())
	authService, err := auth.NewService(store, auth.Config{Secret: []byte("s"), BcryptCost: bcrypt.MinCost}, log)
	require.NoError(t, err)

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	srv, err := New(settings,
		WithLogger(log),
		WithIncidents(incident.New(store, incident.WithLogger(log), incident.WithStatsTTL(0))),
		WithAuthService(authService),
		WithMetrics(metrics),
		WithDatabase(mgr))
	require.NoError(t, err)
	return srv
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Server.Host = "127.0.0.1"
	settings.Server.Port = 8088
	settings.Server.ReadTimeout = 5 * time.Second
	settings.Metrics.Enabled = true

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "127.0.0.1:8088", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, DefaultMetricsPath, cfg.MetricsPath)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":1919", ConfigFromSettings(&conf.Settings{}).Address())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "port out of range", modify: func(c *Config) { c.Port = 70000 }},
		{name: "zero read timeout", modify: func(c *Config) { c.ReadTimeout = 0 }},
		{name: "relative metrics path", modify: func(c *Config) { c.MetricsEnabled = true; c.MetricsPath = "metrics" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	publicDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(publicDir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "images", "a.jpg"), []byte("jpeg"), 0o600))

	settings := &conf.Settings{Version: "test"}
	settings.Media.PublicDir = publicDir
	settings.Metrics.Enabled = true
	srv := newTestServer(t, settings)
	require.NotNil(t, srv.APIController())

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		srv.Echo().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		return w
	}

	static := serve("/public/images/a.jpg")
	require.Equal(t, http.StatusOK, static.Code)
	assert.Equal(t, "jpeg", static.Body.String())

	health := serve("/health")
	require.Equal(t, http.StatusOK, health.Code)
	assert.NotEmpty(t, health.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", health.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusUnauthorized, serve("/page/home").Code)

	metrics := serve(DefaultMetricsPath)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `http_requests_total{method="GET",path="/health",status_code="200"} 1`)
}

func TestServerWithoutMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &conf.Settings{})
	w := httptest.NewRecorder()
	srv.Echo().ServeHTTP(w, httptest.NewRequest(http.MethodGet, DefaultMetricsPath, http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewRequiresServices(t *testing.T) {
	t.Parallel()

	_, err := New(&conf.Settings{}, WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)))
	require.Error(t, err)
}
