// conf/validate.go

package conf

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	sections := []struct {
		name  string
		check func() error
	}{
		{"server", func() error { return validateServerSettings(&settings.Server) }},
		{"database", func() error { return validateDatabaseSettings(&settings.Database) }},
		{"auth", func() error { return validateAuthSettings(&settings.Auth) }},
		{"geocoder", func() error { return validateGeocoderSettings(&settings.Geocoder) }},
		{"media", func() error { return validateMediaSettings(&settings.Media) }},
		{"grouping", func() error { return validateGroupingSettings(&settings.Grouping) }},
		{"sentry", func() error { return validateSentrySettings(&settings.Sentry) }},
	}

	for _, section := range sections {
		if err := section.check(); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %v", section.name, err))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(s *ServerSettings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func validateDatabaseSettings(s *DatabaseSettings) error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.Type, validation.Required, validation.In(DatabaseSQLite, DatabaseMySQL, DatabasePostgres)),
		validation.Field(&s.MaxRetries, validation.Min(0), validation.Max(20)),
	)
	if err != nil {
		return err
	}

	switch s.Type {
	case DatabaseSQLite:
		return validation.ValidateStruct(&s.SQLite,
			validation.Field(&s.SQLite.Path, validation.Required),
		)
	case DatabaseMySQL:
		return validation.ValidateStruct(&s.MySQL,
			validation.Field(&s.MySQL.Host, validation.Required),
			validation.Field(&s.MySQL.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&s.MySQL.Username, validation.Required),
			validation.Field(&s.MySQL.Database, validation.Required),
		)
	default:
		return validation.ValidateStruct(&s.Postgres,
			validation.Field(&s.Postgres.Host, validation.Required),
			validation.Field(&s.Postgres.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&s.Postgres.Username, validation.Required),
			validation.Field(&s.Postgres.Database, validation.Required),
			validation.Field(&s.Postgres.SSLMode, validation.In("disable", "allow", "prefer", "require", "verify-ca", "verify-full")),
		)
	}
}

func validateAuthSettings(s *AuthSettings) error {
	return validation.ValidateStruct(s,
		// An empty secret is replaced with a random one at startup
		validation.Field(&s.JWTSecret, validation.When(s.JWTSecret != "", validation.Length(16, 0))),
		validation.Field(&s.TokenTTL, validation.Min(time.Duration(0))),
		validation.Field(&s.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

func validateGeocoderSettings(s *GeocoderSettings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Provider, validation.Required, validation.In(GeocoderAMap, GeocoderNone)),
		// A missing AMap key degrades to the none provider at startup
		validation.Field(&s.BaseURL, validation.When(s.Provider == GeocoderAMap, validation.Required)),
		validation.Field(&s.Timeout, validation.Required, validation.Min(100*time.Millisecond), validation.Max(time.Minute)),
		validation.Field(&s.RateLimit, validation.Min(0.0)),
		validation.Field(&s.Burst, validation.Min(0)),
	)
}

func validateMediaSettings(s *MediaSettings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.ImagesDir, validation.Required),
		validation.Field(&s.ThumbnailsDir, validation.Required),
		validation.Field(&s.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&s.MaxFiles, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&s.ThumbnailWidth, validation.Required, validation.Min(1)),
		validation.Field(&s.ThumbnailHeight, validation.Required, validation.Min(1)),
	)
}

func validateGroupingSettings(s *GroupingSettings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Timezone, validation.Required, validation.By(func(any) error {
			if _, err := s.Location(); err != nil {
				return fmt.Errorf("unknown timezone %q", s.Timezone)
			}
			return nil
		})),
	)
}

func validateSentrySettings(s *SentrySettings) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.DSN, validation.When(s.Enabled, validation.Required)),
		validation.Field(&s.SampleRate, validation.Min(0.0), validation.Max(1.0)),
	)
}
