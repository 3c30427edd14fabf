package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests share the global viper instance and cannot run in parallel.

func TestDefaultSettingsAreValid(t *testing.T) {
	settings, err := DefaultSettings()
	require.NoError(t, err)

	assert.Equal(t, 1919, settings.Server.Port)
	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, int64(10<<20), settings.Media.MaxUploadBytes)
	assert.Equal(t, 128, settings.Media.ThumbnailWidth)
	assert.Equal(t, "Asia/Shanghai", settings.Grouping.Timezone)
	assert.Equal(t, 5*time.Second, settings.Geocoder.Timeout)
	require.NotNil(t, settings.Logging.FileOutput)
	assert.Equal(t, "logs/mshd.log", settings.Logging.FileOutput.Path)

	require.NoError(t, ValidateSettings(settings))
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MSHD_SERVER_PORT", "8080")
	t.Setenv("MSHD_DATABASE_TYPE", "postgres")
	t.Setenv("MSHD_GEOCODER_AMAP_KEY", "0123456789abcdef")
	t.Setenv("MSHD_GROUPING_TIMEZONE", "UTC")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	defaults, err := DefaultSettings()
	require.NoError(t, err)
	require.NoError(t, SaveYAMLConfig(cfgPath, defaults))

	settings, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, settings.Server.Port)
	assert.Equal(t, DatabasePostgres, settings.Database.Type)
	assert.Equal(t, "0123456789abcdef", settings.Geocoder.AMapKey)
	assert.Equal(t, "UTC", settings.Grouping.Timezone)
	assert.Same(t, settings, GetSettings())
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	settings, err := DefaultSettings()
	require.NoError(t, err)
	settings.Server.Port = 2020
	settings.Auth.JWTSecret, err = GenerateRandomSecret()
	require.NoError(t, err)
	settings.Auth.TokenTTL = 48 * time.Hour

	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveYAMLConfig(cfgPath, settings))

	loaded, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 2020, loaded.Server.Port)
	assert.Equal(t, settings.Auth.JWTSecret, loaded.Auth.JWTSecret)
	assert.Equal(t, 48*time.Hour, loaded.Auth.TokenTTL)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"defaults", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.Server.Port = 70000 }, "server"},
		{"unknown database", func(s *Settings) { s.Database.Type = "oracle" }, "database"},
		{"mysql without host", func(s *Settings) {
			s.Database.Type = DatabaseMySQL
			s.Database.MySQL.Host = ""
		}, "database"},
		{"short jwt secret", func(s *Settings) { s.Auth.JWTSecret = "short" }, "auth"},
		{"unknown timezone", func(s *Settings) { s.Grouping.Timezone = "Mars/Olympus" }, "grouping"},
		{"zero upload size", func(s *Settings) { s.Media.MaxUploadBytes = 0 }, "media"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry"},
		{"unknown geocoder", func(s *Settings) { s.Geocoder.Provider = "google" }, "geocoder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := DefaultSettings()
			require.NoError(t, err)
			tt.mutate(settings)

			err = ValidateSettings(settings)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Errors, 1)
			assert.Contains(t, ve.Errors[0], tt.wantErr)
		})
	}
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MSHD_SERVER_PORT", "not-a-port")
	t.Setenv("MSHD_AUTH_TOKEN_TTL", "forever")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSHD_SERVER_PORT")
	assert.Contains(t, err.Error(), "MSHD_AUTH_TOKEN_TTL")
}

func TestLoadResolvesSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	secretFile := filepath.Join(dir, "jwt")
	require.NoError(t, os.WriteFile(secretFile, []byte("from-file-secret\n"), 0o600))
	t.Setenv("MSHD_TEST_AMAP", "env-amap-key-0001")

	settings, err := DefaultSettings()
	require.NoError(t, err)
	settings.Auth.JWTSecret = "ignored-when-file-is-set"
	settings.Auth.JWTSecretFile = secretFile
	settings.Geocoder.AMapKey = "${MSHD_TEST_AMAP}"
	settings.Database.MySQL.Password = "${MSHD_TEST_UNSET_PASSWORD:-fallback}"

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveYAMLConfig(cfgPath, settings))

	loaded, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from-file-secret", loaded.Auth.JWTSecret)
	assert.Equal(t, "env-amap-key-0001", loaded.Geocoder.AMapKey)
	assert.Equal(t, "fallback", loaded.Database.MySQL.Password)
}

func TestLoadRejectsMissingSecretFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	settings, err := DefaultSettings()
	require.NoError(t, err)
	settings.Auth.JWTSecretFile = filepath.Join(dir, "absent")

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveYAMLConfig(cfgPath, settings))

	_, err = Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret file")
}
