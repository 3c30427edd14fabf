//go:build integration

package datastore

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// newMySQLManager starts a disposable MySQL 8 container.
func newMySQLManager(t *testing.T) Manager {
	t.Helper()
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("mshd"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("mshd-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.DatabaseSettings{
		Type: conf.DatabaseMySQL,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Int(),
			Username: "root",
			Password: "mshd-test",
			Database: "mshd",
		},
	}
	mgr, err := Open(settings, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(ctx))
	return mgr
}

func TestMySQLManagerSchema(t *testing.T) {
	mgr := newMySQLManager(t)
	db := mgr.DB()

	assert.Equal(t, conf.DatabaseMySQL, mgr.Dialect())
	require.NoError(t, mgr.Ping(t.Context()))

	event := entities.Event{Name: "2024-05-01 上海市火灾"}
	require.NoError(t, db.Create(&event).Error)

	datum := entities.Datum{Area: "上海市", Date: "2024-05-01", Category: 2, EventID: event.ID}
	require.NoError(t, db.Create(&datum).Error)

	dup := entities.Datum{Area: "上海市", Date: "2024-05-01", Category: 2, EventID: event.ID}
	require.ErrorIs(t, db.Create(&dup).Error, gorm.ErrDuplicatedKey)

	require.ErrorIs(t, db.Delete(&entities.Event{}, event.ID).Error, gorm.ErrForeignKeyViolated)
}
