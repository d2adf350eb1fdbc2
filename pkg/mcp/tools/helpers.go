package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// connectionConfig extracts the config object every tool carries. The
// map is round-tripped through JSON so the field names match the HTTP
// body exactly. A missing or malformed config yields an error result the
// model can correct.
func connectionConfig(req mcp.CallToolRequest) (*datasource.ConnectionConfig, *mcp.CallToolResult) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, NewErrorResult("invalid_config", "config object is required")
	}
	raw, ok := args["config"].(map[string]any)
	if !ok {
		return nil, NewErrorResult("invalid_config", "config object is required")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, NewErrorResult("invalid_config", "config object is not serializable")
	}
	var cfg datasource.ConnectionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewErrorResult("invalid_config", "config fields have the wrong types")
	}
	return &cfg, nil
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}
