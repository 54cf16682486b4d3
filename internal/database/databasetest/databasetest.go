// Package databasetest opens migrated throwaway SQLite databases for tests.
package databasetest

import (
	"path/filepath"
	"testing"

	"github.com/truthbyte/backend/internal/config"
	"github.com/truthbyte/backend/internal/database"
)

// Config returns a SQLite configuration rooted in a fresh temp directory.
func Config(t testing.TB) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "trivia.db"),
	}
}

// Open returns a migrated database that is closed when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()
	cfg := Config(t)
	if err := database.Migrate(cfg, database.Up); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
