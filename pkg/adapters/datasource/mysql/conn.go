// Package mysql implements the datasource contract for MySQL and MariaDB,
// the engine's original dialect.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
)

const connectTimeout = 10 * time.Second

// maxOpenConns keeps a few connections available so table samples can run
// in parallel during introspection.
const maxOpenConns = 4

// Conn is a live MySQL connection for one request.
type Conn struct {
	cfg    *datasource.ConnectionConfig
	db     *sql.DB
	logger *zap.Logger
}

// buildDSN renders the go-sql-driver DSN. ParseTime makes DATETIME scan as
// time.Time so values render the same as on the other drivers. Loopback
// hosts are resolved to host.docker.internal when the engine runs inside
// Docker.
func buildDSN(cfg *datasource.ConnectionConfig) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = connectTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to the configured database and verifies it is reachable.
func Open(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Conn{cfg: cfg, db: db, logger: logger.Named("mysql")}, nil
}

// TestConnection pings the server and verifies the session landed on the
// requested database.
func (c *Conn) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var current sql.NullString
	if err := c.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
		return fmt.Errorf("query current database: %w", err)
	}
	if !current.Valid || !strings.EqualFold(current.String, c.cfg.Database) {
		return fmt.Errorf("connected to database %q, expected %q", current.String, c.cfg.Database)
	}
	return nil
}

// Dialect names the SQL dialect.
func (c *Conn) Dialect() string { return datasource.DriverMySQL }

// QuoteIdentifier quotes one identifier with backticks.
func (c *Conn) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Close releases the connection.
func (c *Conn) Close() error { return c.db.Close() }

// Ensure Conn satisfies the datasource contract at compile time.
var _ datasource.Conn = (*Conn)(nil)
