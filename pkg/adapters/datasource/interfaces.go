// Package datasource connects the engine to the databases it inspects and
// queries. Each supported driver lives in its own subpackage and registers a
// Factory at init time; callers open a connection per request with Open and
// close it when the request ends. Credentials arrive with the request and are
// never cached between requests.
package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Driver names accepted in ConnectionConfig.Driver.
const (
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// MaxQueryLimit caps the rows any query may return regardless of the
// caller's requested limit.
const MaxQueryLimit = 1000

// defaultPorts is applied by Normalize when the request omits a port.
var defaultPorts = map[string]int{
	DriverMySQL:     3306,
	DriverPostgres:  5432,
	DriverSQLServer: 1433,
}

// driverAliases maps accepted spellings to canonical driver names.
var driverAliases = map[string]string{
	"postgresql": DriverPostgres,
	"mssql":      DriverSQLServer,
	"sqlite3":    DriverSQLite,
}

// ConnectionConfig carries the connection details for one request.
// For SQLite the database field is the file path and the network fields
// are ignored.
type ConnectionConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Normalize lowercases the driver, resolves aliases and fills defaults.
// An empty driver means MySQL, the engine's original dialect.
func (c *ConnectionConfig) Normalize() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverMySQL
	}
	if canonical, ok := driverAliases[c.Driver]; ok {
		c.Driver = canonical
	}
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" && c.Driver != DriverSQLite {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = defaultPorts[c.Driver]
	}
}

// Validate reports whether the config is complete enough to attempt a
// connection. SQLite needs only a database path; the networked drivers
// need host, username and database.
func (c *ConnectionConfig) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Driver == DriverSQLite {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("host is required for driver %q", c.Driver)
	}
	if c.Username == "" {
		return fmt.Errorf("username is required for driver %q", c.Driver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	return nil
}

// Redacted returns a loggable description of the target without the password.
func (c *ConnectionConfig) Redacted() string {
	if c.Driver == DriverSQLite {
		return "sqlite:" + c.Database
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Driver, c.Username, c.Host, c.Port, c.Database)
}

// Introspector reads database structure.
type Introspector interface {
	// DescribeSchema enumerates tables, columns, foreign keys and row
	// samples. sampleRows bounds the per-table sample; zero disables
	// sampling. A failed sample degrades to an empty one and never
	// aborts introspection.
	DescribeSchema(ctx context.Context, sampleRows int) (*SchemaDescription, error)

	// ListDatabases names the user databases visible to the connection,
	// system catalogs excluded.
	ListDatabases(ctx context.Context) ([]string, error)

	// CountRows returns the exact row count of one table.
	CountRows(ctx context.Context, table string) (int64, error)
}

// Executor runs SQL against the connected database.
type Executor interface {
	// Query runs a row-returning statement wrapped with a dialect limit.
	// Limits outside (0, MaxQueryLimit] are clamped to MaxQueryLimit.
	Query(ctx context.Context, sqlText string, limit int) (*QueryResult, error)

	// Execute runs any single statement. Row-returning statements fill
	// Columns and Rows; plain DML fills RowsAffected.
	Execute(ctx context.Context, sqlText string) (*ExecResult, error)

	// ExecuteWithParams runs a parameterized DML statement. Placeholders
	// use $1, $2, ... in ascending order regardless of dialect; drivers
	// translate as needed. Result rows are not collected.
	ExecuteWithParams(ctx context.Context, sqlText string, params []any) (*ExecResult, error)

	// Page reads one page of a table.
	Page(ctx context.Context, table string, limit, offset int) (*QueryResult, error)

	// Explain returns the execution plan for a statement, one line per
	// plan row, without running it to completion.
	Explain(ctx context.Context, sqlText string) ([]string, error)
}

// Conn is a live connection to one database, held for one request.
type Conn interface {
	Introspector
	Executor

	// Dialect names the SQL dialect ("mysql", "postgres", ...).
	Dialect() string

	// QuoteIdentifier quotes a single identifier for this dialect.
	QuoteIdentifier(name string) string

	// TestConnection verifies the database is reachable and, where the
	// dialect can tell, that the session landed on the requested database.
	TestConnection(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Factory opens connections for one driver. Implementations register
// themselves via Register from an init function.
type Factory interface {
	Driver() string
	Open(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (Conn, error)
}
