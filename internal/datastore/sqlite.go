package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteManager handles the SQLite database file.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// sqliteDSN enables WAL and foreign keys, waits up to 5s on a busy database
// and opens write transactions with BEGIN IMMEDIATE so that concurrent
// writers queue on the lock instead of failing with SQLITE_BUSY on upgrade.
func sqliteDSN(path string) string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate", path)
}

// NewSQLiteManager opens (creating if needed) the database at cfg.Path.
func NewSQLiteManager(cfg *conf.SQLiteSettings, gormCfg *gorm.Config) (*SQLiteManager, error) {
	dbPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.FileError(fmt.Errorf("failed to create database directory: %w", err), dbPath, 0)
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(dbPath)), gormCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", dbPath).
			Build()
	}

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return migrate(ctx, m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Dialect returns "sqlite".
func (m *SQLiteManager) Dialect() string {
	return conf.DatabaseSQLite
}

// Ping checks the connection.
func (m *SQLiteManager) Ping(ctx context.Context) error {
	return ping(ctx, m.db)
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}
