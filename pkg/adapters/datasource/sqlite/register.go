package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

func init() {
	datasource.Register(factory{})
}

type factory struct{}

func (factory) Driver() string { return datasource.DriverSQLite }

func (factory) Open(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.Conn, error) {
	return Open(ctx, cfg, logger)
}
