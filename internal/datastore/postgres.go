package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresManager handles a PostgreSQL database.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

func postgresDSN(cfg *conf.PostgresSettings) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode)
}

// NewPostgresManager connects to the configured PostgreSQL server.
func NewPostgresManager(cfg *conf.PostgresSettings, gormCfg *gorm.Config) (*PostgresManager, error) {
	location := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), gormCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open PostgreSQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("location", location).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &PostgresManager{db: db, location: location}, nil
}

func (m *PostgresManager) Initialize(ctx context.Context) error { return migrate(ctx, m.db) }
func (m *PostgresManager) DB() *gorm.DB                         { return m.db }
func (m *PostgresManager) Path() string                         { return m.location }
func (m *PostgresManager) Dialect() string                      { return conf.DatabasePostgres }
func (m *PostgresManager) Ping(ctx context.Context) error       { return ping(ctx, m.db) }
func (m *PostgresManager) Close() error                         { return closeDB(m.db) }
