// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MSHD_SERVER_PORT.
const EnvPrefix = "MSHD"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings lists the variables that are validated before use. Every
// other key is still overridable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"server.port", "MSHD_SERVER_PORT", validateEnvPort},
		{"database.type", "MSHD_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "MSHD_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.password", "MSHD_DATABASE_MYSQL_PASSWORD", nil},
		{"database.postgres.password", "MSHD_DATABASE_POSTGRES_PASSWORD", nil},
		{"auth.jwt_secret", "MSHD_AUTH_JWT_SECRET", validateEnvSecret},
		{"auth.token_ttl", "MSHD_AUTH_TOKEN_TTL", validateEnvDuration},
		{"geocoder.amap_key", "MSHD_GEOCODER_AMAP_KEY", nil},
		{"geocoder.timeout", "MSHD_GEOCODER_TIMEOUT", validateEnvDuration},
		{"grouping.timezone", "MSHD_GROUPING_TIMEZONE", validateEnvTimezone},
		{"sentry.dsn", "MSHD_SENTRY_DSN", nil},
		{"debug", "MSHD_DEBUG", validateEnvBool},
	}
}

// loadDotEnv loads .env from the working directory when present.
// Variables already set in the process environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	if !slices.Contains([]string{DatabaseSQLite, DatabaseMySQL, DatabasePostgres}, value) {
		return fmt.Errorf("database type must be sqlite, mysql or postgres, got '%s'", value)
	}
	return nil
}

func validateEnvSecret(value string) error {
	if len(value) < 16 {
		return fmt.Errorf("secret must be at least 16 characters")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid duration '%s': %w", value, err)
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone '%s'", value)
	}
	return nil
}
