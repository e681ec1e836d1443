// Package dbtest opens throwaway sqlite databases with the full schema for
// engine and handler tests.
package dbtest

import (
	"arena/src/db"
	"arena/src/models"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to the calling test.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()
	// Shared cache keeps one database per name across the pool's connections.
	dsn := fmt.Sprintf("file:arena_test_%d?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000", seq.Add(1))
	opts := db.Options()
	opts.Logger = logger.Default.LogMode(logger.Silent)
	gdb, err := gorm.Open(sqlite.Open(dsn), opts)
	if err != nil {
		tb.Fatalf("open sqlite: %s", err.Error())
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite pool: %s", err.Error())
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(gdb); err != nil {
		tb.Fatalf("migrate: %s", err.Error())
	}
	tb.Cleanup(func() {
		sqlDB.Close()
	})
	return gdb
}
