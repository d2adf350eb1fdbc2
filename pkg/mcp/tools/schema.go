package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

// SchemaToolDeps contains dependencies for the schema tool.
type SchemaToolDeps struct {
	Schemas services.SchemaService
	Logger  *zap.Logger
}

// RegisterSchemaTools registers the introspection tools.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerDBStructureTool(s, deps)
}

// registerDBStructureTool exposes fresh per-call introspection.
func registerDBStructureTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"db_structure",
		mcp.WithDescription(
			"Introspect the connected database: every table with its columns, types, "+
				"primary keys, row counts and a few sample rows, plus the foreign key "+
				"relationships between tables. The schema is read fresh on every call. "+
				"Use this to understand the data before writing SQL.",
		),
		mcp.WithObject(
			"config",
			mcp.Required(),
			mcp.Description(configParamDescription),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg, errResult := connectionConfig(req)
		if errResult != nil {
			return errResult, nil
		}

		structure, err := deps.Schemas.Structure(ctx, cfg)
		if err != nil {
			return failTool(deps.Logger, "db_structure", err)
		}

		jsonResult, _ := json.Marshal(structure)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
