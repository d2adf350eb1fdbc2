// Package mssql implements the datasource contract for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
)

const (
	connectTimeout = 10 * time.Second

	// A few connections keep table samples running in parallel during
	// introspection.
	maxOpenConns = 4
)

// Conn is one live SQL Server connection set.
type Conn struct {
	cfg    *datasource.ConnectionConfig
	db     *sql.DB
	logger *zap.Logger
}

// buildConnString renders a sqlserver:// URL. TrustServerCertificate keeps
// servers with self-signed certificates reachable. Loopback hosts are
// resolved to host.docker.internal when the engine runs inside Docker.
func buildConnString(cfg *datasource.ConnectionConfig) string {
	query := url.Values{}
	query.Set("database", cfg.Database)
	query.Set("TrustServerCertificate", "true")
	query.Set("connection timeout", "10")

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Open connects to the configured database and verifies it is reachable.
func Open(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnString(cfg)
	logger.Debug("Opening connection",
		zap.String("target", logging.SanitizeConnectionString(connStr)))

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sqlserver at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Conn{cfg: cfg, db: db, logger: logger.Named("sqlserver")}, nil
}

// TestConnection verifies reachability and that the session landed on the
// requested database.
func (c *Conn) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var current sql.NullString
	if err := c.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&current); err != nil {
		return fmt.Errorf("read current database: %w", err)
	}
	if !current.Valid || !strings.EqualFold(current.String, c.cfg.Database) {
		return fmt.Errorf("connected to database %q, expected %q", current.String, c.cfg.Database)
	}
	return nil
}

func (c *Conn) Dialect() string { return datasource.DriverSQLServer }

// QuoteIdentifier quotes one identifier in brackets.
func (c *Conn) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// tableRef quotes a table reference, defaulting the schema to dbo.
func (c *Conn) tableRef(table string) string {
	schema, name := parseSchemaTable(table)
	return quoteName(schema) + "." + quoteName(name)
}

// Close releases the connection set.
func (c *Conn) Close() error {
	return c.db.Close()
}

// Ensure Conn satisfies the datasource contract at compile time.
var _ datasource.Conn = (*Conn)(nil)
