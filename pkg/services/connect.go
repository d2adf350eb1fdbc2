// Package services orchestrates the request pipeline: it opens a database
// connection from the per-request config, composes introspection, prompt
// assembly, generation, validation, execution and chart selection, and
// classifies every failure into the shared error taxonomy. Services hold
// no cross-request state; a connection lives for exactly one call.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
)

// Opener opens one live connection for a request. datasource.Open is the
// production implementation; tests substitute fakes.
type Opener func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.Conn, error)

// ConnectionService turns request configs into live connections and
// answers connectivity probes.
type ConnectionService interface {
	// Connect validates the config and opens a connection. The caller
	// owns the returned connection and must close it.
	Connect(ctx context.Context, cfg *datasource.ConnectionConfig) (datasource.Conn, error)

	// TestConnection verifies the credentials and lists the user
	// databases they can see. The database field may be left empty for
	// the networked drivers; the probe then lands on the dialect's
	// system catalog.
	TestConnection(ctx context.Context, cfg *datasource.ConnectionConfig) ([]string, error)
}

type connectionService struct {
	open   Opener
	logger *zap.Logger
}

// NewConnectionService creates the connection service. open is typically
// datasource.Open.
func NewConnectionService(open Opener, logger *zap.Logger) ConnectionService {
	return &connectionService{open: open, logger: logger.Named("connect")}
}

func (s *connectionService) Connect(ctx context.Context, cfg *datasource.ConnectionConfig) (datasource.Conn, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.StageIntrospection, "connection config is required")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StageIntrospection, err)
	}

	conn, err := s.open(ctx, cfg, s.logger)
	if err != nil {
		// Driver errors can echo the DSN, credentials included.
		s.logger.Warn("Connection failed",
			zap.String("target", cfg.Redacted()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.Wrap(apperrors.KindConnection, apperrors.StageIntrospection, err)
	}
	return conn, nil
}

func (s *connectionService) TestConnection(ctx context.Context, cfg *datasource.ConnectionConfig) ([]string, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.StageIntrospection, "connection config is required")
	}
	cfg.Normalize()
	if cfg.Database == "" {
		catalog, err := catalogDatabase(cfg.Driver)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StageIntrospection, err)
		}
		cfg.Database = catalog
	}

	conn, err := s.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	databases, err := conn.ListDatabases(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageIntrospection, err)
	}
	return databases, nil
}

// catalogDatabase names the always-present database a probe can land on
// when the request does not pick one.
func catalogDatabase(driver string) (string, error) {
	switch driver {
	case datasource.DriverMySQL:
		return "information_schema", nil
	case datasource.DriverPostgres:
		return "postgres", nil
	case datasource.DriverSQLServer:
		return "master", nil
	default:
		return "", fmt.Errorf("driver %q needs an explicit database", driver)
	}
}

// quoteTableRef quotes a possibly schema-qualified table reference the way
// the connected dialect expects. Table names come from introspection, where
// a dot only ever separates schema from table.
func quoteTableRef(conn datasource.Conn, name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = conn.QuoteIdentifier(parts[i])
	}
	return strings.Join(parts, ".")
}
