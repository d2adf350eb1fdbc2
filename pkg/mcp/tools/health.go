// Package tools registers the engine's MCP tools. Each tool carries its
// own connection config; nothing persists between calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

type healthResult struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Drivers []string `json:"drivers"`
}

// RegisterHealthTool adds a health tool reporting status, version and the
// registered database drivers. Clients use the driver list to decide which
// connection configs this build accepts.
func RegisterHealthTool(s *server.MCPServer, version string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health, version and the supported database drivers"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{
			Status:  "ok",
			Version: version,
			Drivers: datasource.SupportedDrivers(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
