// Package datastore opens the configured database backend and owns its
// lifecycle. Queries live in the repository subpackage.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"gorm.io/gorm"
)

// Manager defines the lifecycle operations shared by every backend.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/db otherwise).
	Path() string
	// Dialect returns the backend name: sqlite, mysql or postgres.
	Dialect() string
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Close closes the database connection.
	Close() error
}

// schemaModels lists every entity managed by AutoMigrate.
func schemaModels() []any {
	return []any{
		&entities.User{},
		&entities.Event{},
		&entities.Datum{},
		&entities.Report{},
		&entities.Attachment{},
		&entities.Star{},
	}
}

// Open creates the manager for settings.Type.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	switch settings.Type {
	case conf.DatabaseSQLite:
		return NewSQLiteManager(&settings.SQLite, gormConfig(settings, log.Module("sqlite")))
	case conf.DatabaseMySQL:
		return NewMySQLManager(&settings.MySQL, gormConfig(settings, log.Module("mysql")))
	case conf.DatabasePostgres:
		return NewPostgresManager(&settings.Postgres, gormConfig(settings, log.Module("postgres")))
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// gormConfig is shared by all backends. Timestamps are stored in UTC and
// driver errors are translated so that unique violations surface as
// gorm.ErrDuplicatedKey.
func gormConfig(settings *conf.DatabaseSettings, log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(schemaModels()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
