// Package dbtest поднимает временную SQLite-базу реестра для тестов.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"plate-service/internal/config"
	"plate-service/internal/db"
)

func New(tb testing.TB) *gorm.DB {
	tb.Helper()
	cfg := &config.Config{
		Environment: "test",
		DB: config.DBConfig{
			Driver:       config.DBDriverSQLite,
			DSN:          filepath.Join(tb.TempDir(), "registry.db"),
			MaxOpenConns: 1,
		},
	}
	database, err := db.New(cfg, zerolog.Nop())
	if err != nil {
		tb.Fatalf("failed to open test database: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}
