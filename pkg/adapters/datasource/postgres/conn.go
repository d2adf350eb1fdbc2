// Package postgres implements the datasource contract for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
)

// maxPoolConns keeps a few connections available so table samples can run
// in parallel during introspection.
const maxPoolConns = 4

// Conn is a live PostgreSQL connection set for one request.
type Conn struct {
	cfg    *datasource.ConnectionConfig
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// buildConnString renders a pgx connection URL. sslmode=prefer keeps plain
// local servers working while still encrypting when the server offers it.
// Loopback hosts are resolved to host.docker.internal when the engine runs
// inside Docker.
func buildConnString(cfg *datasource.ConnectionConfig) string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=prefer&connect_timeout=10",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		cfg.Port,
		url.QueryEscape(cfg.Database),
	)
}

// Open connects to the configured database and verifies it is reachable.
func Open(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnString(cfg)
	logger.Debug("Opening connection",
		zap.String("target", logging.SanitizeConnectionString(connStr)))

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = maxPoolConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Conn{cfg: cfg, pool: pool, logger: logger.Named("postgres")}, nil
}

// TestConnection pings the server and verifies the session landed on the
// requested database.
func (c *Conn) TestConnection(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var current string
	if err := c.pool.QueryRow(ctx, "SELECT current_database()").Scan(&current); err != nil {
		return fmt.Errorf("query current database: %w", err)
	}
	if !strings.EqualFold(current, c.cfg.Database) {
		return fmt.Errorf("connected to database %q, expected %q", current, c.cfg.Database)
	}
	return nil
}

// Dialect names the SQL dialect.
func (c *Conn) Dialect() string { return datasource.DriverPostgres }

// QuoteIdentifier quotes one identifier.
func (c *Conn) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// tableRef quotes a table reference that may carry a schema qualifier.
func (c *Conn) tableRef(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema}.Sanitize() + "." + pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// Close releases the connection set.
func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// Ensure Conn satisfies the datasource contract at compile time.
var _ datasource.Conn = (*Conn)(nil)
