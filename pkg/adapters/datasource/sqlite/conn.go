// Package sqlite implements the datasource contract for SQLite files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// A few connections keep table samples running in parallel during
// introspection of file databases.
const maxOpenConns = 4

// Conn is one open SQLite database.
type Conn struct {
	cfg    *datasource.ConnectionConfig
	db     *sql.DB
	logger *zap.Logger
}

// buildDSN appends the connection options to the database path. The busy
// timeout keeps concurrent samples from failing on a locked file.
func buildDSN(path string) string {
	return fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
}

// isMemory reports whether the path names an in-memory database.
func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Open opens the database file and verifies it is readable.
func Open(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", buildDSN(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if isMemory(cfg.Database) {
		// Every pooled connection would otherwise open its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite database %s: %w", cfg.Database, err)
	}

	return &Conn{cfg: cfg, db: db, logger: logger.Named("sqlite")}, nil
}

// TestConnection verifies the database file is readable.
func (c *Conn) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("probe query: %w", err)
	}
	return nil
}

func (c *Conn) Dialect() string { return datasource.DriverSQLite }

// QuoteIdentifier quotes one identifier.
func (c *Conn) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Close releases the database handle.
func (c *Conn) Close() error {
	return c.db.Close()
}

// Ensure Conn satisfies the datasource contract at compile time.
var _ datasource.Conn = (*Conn)(nil)
