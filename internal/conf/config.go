// Package conf loads and validates service settings from config.yaml,
// .env files and MSHD_ environment variables.
package conf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// Database backends
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// Geocoder providers
const (
	GeocoderAMap = "amap"
	GeocoderNone = "none"
)

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	// Runtime values, not stored in config file
	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`

	Server   ServerSettings       `yaml:"server" mapstructure:"server"`
	Database DatabaseSettings     `yaml:"database" mapstructure:"database"`
	Auth     AuthSettings         `yaml:"auth" mapstructure:"auth"`
	Geocoder GeocoderSettings     `yaml:"geocoder" mapstructure:"geocoder"`
	Media    MediaSettings        `yaml:"media" mapstructure:"media"`
	Grouping GroupingSettings     `yaml:"grouping" mapstructure:"grouping"`
	Logging  logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Sentry   SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Metrics  MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Address returns host:port for the listener.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseSettings selects and configures the storage backend.
type DatabaseSettings struct {
	Type               string           `yaml:"type" mapstructure:"type"` // sqlite, mysql or postgres
	SQLite             SQLiteSettings   `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL              MySQLSettings    `yaml:"mysql" mapstructure:"mysql"`
	Postgres           PostgresSettings `yaml:"postgres" mapstructure:"postgres"`
	MaxRetries         int              `yaml:"max_retries" mapstructure:"max_retries"` // retries for lock and deadlock errors
	RetryDelay         time.Duration    `yaml:"retry_delay" mapstructure:"retry_delay"`
	SlowQueryThreshold time.Duration    `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`

	PasswordFile string `yaml:"password_file,omitempty" mapstructure:"password_file"` // takes precedence over Password
}

// PostgresSettings contains settings for the PostgreSQL database.
type PostgresSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`

	PasswordFile string `yaml:"password_file,omitempty" mapstructure:"password_file"` // takes precedence over Password
}

// AuthSettings configures login tokens.
type AuthSettings struct {
	JWTSecret     string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTSecretFile string        `yaml:"jwt_secret_file,omitempty" mapstructure:"jwt_secret_file"` // takes precedence over JWTSecret
	TokenTTL      time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`                       // 0 issues tokens without expiry
	AutoRegister  bool          `yaml:"auto_register" mapstructure:"auto_register"`               // unknown names are registered at login
	BcryptCost    int           `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// GeocoderSettings configures reverse geocoding of report coordinates.
type GeocoderSettings struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // amap or none
	AMapKey     string        `yaml:"amap_key" mapstructure:"amap_key"`
	AMapKeyFile string        `yaml:"amap_key_file,omitempty" mapstructure:"amap_key_file"` // takes precedence over AMapKey
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	Burst       int           `yaml:"burst" mapstructure:"burst"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// MediaSettings configures attachment storage.
type MediaSettings struct {
	PublicDir       string `yaml:"public_dir" mapstructure:"public_dir"` // served under /public
	ImagesDir       string `yaml:"images_dir" mapstructure:"images_dir"`
	ThumbnailsDir   string `yaml:"thumbnails_dir" mapstructure:"thumbnails_dir"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	MaxFiles        int    `yaml:"max_files" mapstructure:"max_files"`
	ThumbnailWidth  int    `yaml:"thumbnail_width" mapstructure:"thumbnail_width"`
	ThumbnailHeight int    `yaml:"thumbnail_height" mapstructure:"thumbnail_height"`
}

// GroupingSettings configures how reports are bucketed into data.
type GroupingSettings struct {
	Timezone      string        `yaml:"timezone" mapstructure:"timezone"` // calendar day boundary for grouping
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl" mapstructure:"stats_cache_ttl"`
}

// Location resolves the grouping timezone.
func (g GroupingSettings) Location() (*time.Location, error) {
	return time.LoadLocation(g.Timezone)
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, .env files and environment variables.
// An empty configFile searches the default config paths.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file if one exists.
func initViper(configFile string) error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Defaults plus environment are a complete configuration
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}

// GetSettings returns the settings returned by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultSettings returns the built-in defaults without reading any file or environment.
func DefaultSettings() (*Settings, error) {
	v := viper.New()
	setDefaultsOn(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveYAMLConfig writes settings to configPath. The file is replaced
// atomically and comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write to a temp file in the same directory so the rename is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		tempFile.Close()
		return fmt.Errorf("error setting config file permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// GenerateRandomSecret generates a URL-safe base64 encoded random string
// with 256 bits of entropy, used for the JWT signing secret.
func GenerateRandomSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
