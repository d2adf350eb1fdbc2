// Package testhelpers provides shared fixtures for integration tests:
// seeded SQLite database files and a pooled PostgreSQL test container.
package testhelpers

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// SeedSQLite creates a SQLite database file under the test's temp
// directory, applies the statements in order, and returns a connection
// config pointing at it. The pipeline under test opens its own
// connection from the config; the seeding handle is closed before
// returning so the file is never shared.
func SeedSQLite(t *testing.T, stmts ...string) *datasource.ConnectionConfig {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite fixture: %v", err)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("seed sqlite fixture: %v\nstatement: %s", err, stmt)
		}
	}

	if err := db.Close(); err != nil {
		t.Fatalf("close sqlite fixture: %v", err)
	}

	return &datasource.ConnectionConfig{
		Driver:   datasource.DriverSQLite,
		Database: path,
	}
}
