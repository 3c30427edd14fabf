// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers defaults on the global viper instance.
func setDefaultConfig() {
	setDefaultsOn(viper.GetViper())
}

// setDefaultsOn registers every known key so that AutomaticEnv and
// Unmarshal see the full key set even without a config file.
func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 1919)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.sqlite.path", "data/mshd.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "root")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.password_file", "")
	v.SetDefault("database.mysql.database", "mshd")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.username", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.password_file", "")
	v.SetDefault("database.postgres.database", "mshd")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.max_retries", 5)
	v.SetDefault("database.retry_delay", 50*time.Millisecond)
	v.SetDefault("database.slow_query_threshold", 200*time.Millisecond)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_secret_file", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.auto_register", true)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("geocoder.provider", GeocoderAMap)
	v.SetDefault("geocoder.amap_key", "")
	v.SetDefault("geocoder.amap_key_file", "")
	v.SetDefault("geocoder.base_url", "https://restapi.amap.com")
	v.SetDefault("geocoder.timeout", 5*time.Second)
	v.SetDefault("geocoder.rate_limit", 3.0)
	v.SetDefault("geocoder.burst", 3)
	v.SetDefault("geocoder.cache_ttl", 24*time.Hour)

	v.SetDefault("media.public_dir", "public")
	v.SetDefault("media.images_dir", "public/images")
	v.SetDefault("media.thumbnails_dir", "public/thumbnails")
	v.SetDefault("media.max_upload_bytes", int64(10<<20))
	v.SetDefault("media.max_files", 9)
	v.SetDefault("media.thumbnail_width", 128)
	v.SetDefault("media.thumbnail_height", 128)

	v.SetDefault("grouping.timezone", "Asia/Shanghai")
	v.SetDefault("grouping.stats_cache_ttl", 10*time.Second)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Asia/Shanghai")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", true)
	v.SetDefault("logging.file_output.path", "logs/mshd.log")
	v.SetDefault("logging.file_output.level", "info")
	v.SetDefault("logging.file_output.max_size", 100)
	v.SetDefault("logging.file_output.max_age", 30)
	v.SetDefault("logging.file_output.max_rotated_files", 10)
	v.SetDefault("logging.file_output.compress", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
