// Package dbtest opens throwaway SQLite-backed gorm handles for package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an in-memory database with models migrated. The pool is
// pinned to one connection, so concurrent transactions queue behind each
// other the same way row locks make them queue on Postgres.
func New(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, models...))
	return db
}

// Runner wraps db in a transaction runner with no retries
func Runner(db *gorm.DB) *database.TxRunner {
	return database.NewTxRunner(db, 0)
}
