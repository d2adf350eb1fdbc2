package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/mssql"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/mysql"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/postgres"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/sqlite"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/handlers"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/llm"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/mcp"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/mcp/tools"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/metrics"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/middleware"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	provider, err := llm.NewProvider(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to build AI provider", zap.Error(err))
	}
	gateway := llm.NewGateway(provider, &cfg.AI, logger)

	conns := services.NewConnectionService(datasource.Open, logger)
	queries := services.NewQueryService(conns, gateway, &cfg.Query, logger)
	schemas := services.NewSchemaService(conns, &cfg.Query, logger)
	tables := services.NewTableService(conns, &cfg.Query, logger)
	analyzer := services.NewAnalyzeService(conns, &cfg.Query, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg.Version, gateway, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(queries, logger).RegisterRoutes(mux)
	handlers.NewConnectionHandler(conns, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemas, logger).RegisterRoutes(mux)
	handlers.NewTableHandler(tables, logger).RegisterRoutes(mux)
	handlers.NewAnalyzeHandler(analyzer, logger).RegisterRoutes(mux)
	handlers.NewChartHandler(logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("mysql-ragllm", cfg.Version, logger)
		tools.RegisterQueryTools(mcpServer.MCP(), &tools.QueryToolDeps{Queries: queries, Logger: logger})
		tools.RegisterSchemaTools(mcpServer.MCP(), &tools.SchemaToolDeps{Schemas: schemas, Logger: logger})
		tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// Recovery wraps everything; the request id must exist before the
	// request logger runs.
	var handler http.Handler = middleware.Metrics(mux)
	handler = middleware.CORS(cfg.Server.AllowedOrigin)(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(logger)(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.String("env", cfg.Env),
			zap.String("ai_provider", cfg.AI.Provider),
			zap.String("ai_model", cfg.AI.Model),
			zap.Bool("mcp_enabled", cfg.MCP.Enabled))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
}
