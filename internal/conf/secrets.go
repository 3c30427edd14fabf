package conf

import (
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/secrets"
)

// resolveSecrets replaces credential fields with the content of their
// *_file companion or the expansion of ${VAR} references.
func resolveSecrets(settings *Settings) error {
	log := logger.Global().Module("conf")

	fields := []struct {
		key   string
		file  string
		value *string
	}{
		{"auth.jwt_secret", settings.Auth.JWTSecretFile, &settings.Auth.JWTSecret},
		{"geocoder.amap_key", settings.Geocoder.AMapKeyFile, &settings.Geocoder.AMapKey},
		{"database.mysql.password", settings.Database.MySQL.PasswordFile, &settings.Database.MySQL.Password},
		{"database.postgres.password", settings.Database.Postgres.PasswordFile, &settings.Database.Postgres.Password},
	}

	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value, log)
		if err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("key", f.key).
				Build()
		}
		*f.value = resolved
	}
	return nil
}
