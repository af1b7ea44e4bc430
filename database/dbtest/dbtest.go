// Package dbtest gives tests a migrated, isolated in-memory database.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"contestsphere-server/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a fresh SQLite database with the production schema. Each call
// gets its own named in-memory database so tests can run in parallel.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := database.Open(context.Background(), database.Options{
		Driver:       database.DriverSQLite,
		DSN:          dsn,
		LogLevel:     gormlogger.Silent,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
