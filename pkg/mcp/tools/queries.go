package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/prompts"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// configParamDescription documents the connection object every tool takes.
const configParamDescription = "Database connection: {driver (postgres|mysql|sqlserver|sqlite), " +
	"host, port, username, password, database}. For sqlite, database is the file path " +
	"and the other fields are ignored. The config is used for this call only and never stored."

// QueryToolDeps contains dependencies for the query tools.
type QueryToolDeps struct {
	Queries services.QueryService
	Logger  *zap.Logger
}

// RegisterQueryTools registers the question-to-SQL pipeline tools.
func RegisterQueryTools(s *server.MCPServer, deps *QueryToolDeps) {
	registerNLQueryTool(s, deps)
	registerRunSQLTool(s, deps)
	registerVisualizeQueryTool(s, deps)
}

// registerNLQueryTool exposes the full natural-language pipeline:
// introspect, generate, validate, execute, explain.
func registerNLQueryTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"nl_query",
		mcp.WithDescription(
			"Answer a natural language question by generating SQL, executing it against "+
				"the connected database and explaining the results. Returns the generated SQL, "+
				"result columns and rows, a prose answer and a chart suggestion when the result "+
				"shape supports one. Use db_structure first if you need to inspect the schema yourself.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, in plain language"),
		),
		mcp.WithObject(
			"config",
			mcp.Required(),
			mcp.Description(configParamDescription),
		),
		mcp.WithArray(
			"history",
			mcp.Description("Optional prior exchanges as {question, sql} objects, oldest first. "+
				"Lets follow-up questions build on earlier generated SQL."),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		cfg, errResult := connectionConfig(req)
		if errResult != nil {
			return errResult, nil
		}

		result, err := deps.Queries.NLQuery(ctx, &services.NLQueryRequest{
			Config:   cfg,
			Question: question,
			History:  historyExchanges(req),
		})
		if err != nil {
			return failTool(deps.Logger, "nl_query", err)
		}

		jsonResult, _ := json.Marshal(result)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerRunSQLTool executes one caller-written statement.
func registerRunSQLTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"run_sql",
		mcp.WithDescription(
			"Execute one SQL statement exactly as written. Row-returning statements come back "+
				"as columns and rows; everything else reports the affected row count. "+
				"Exactly one statement is allowed per call.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute"),
		),
		mcp.WithObject(
			"config",
			mcp.Required(),
			mcp.Description(configParamDescription),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := req.RequireString("sql")
		if err != nil {
			return nil, err
		}
		cfg, errResult := connectionConfig(req)
		if errResult != nil {
			return errResult, nil
		}

		result, err := deps.Queries.DirectSQL(ctx, cfg, sqlText)
		if err != nil {
			return failTool(deps.Logger, "run_sql", err)
		}

		jsonResult, _ := json.Marshal(result)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// visualizeResult names the chart in the tool output.
type visualizeResult struct {
	Chart *viz.Chart `json:"chart"`
}

// registerVisualizeQueryTool runs a statement and picks a chart for it.
func registerVisualizeQueryTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"visualize_query",
		mcp.WithDescription(
			"Execute a row-returning SQL statement and choose a chart for the results. "+
				"Returns the chart kind (bar/line/pie/scatter/table) with labels and datasets "+
				"ready to render. Statements that return no rows are rejected.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The row-returning SQL statement to visualize"),
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
		sqlText, err := req.RequireString("sql")
		if err != nil {
			return nil, err
		}
		cfg, errResult := connectionConfig(req)
		if errResult != nil {
			return errResult, nil
		}

		chart, err := deps.Queries.VisualizeQuery(ctx, cfg, sqlText)
		if err != nil {
			return failTool(deps.Logger, "visualize_query", err)
		}

		jsonResult, _ := json.Marshal(visualizeResult{Chart: chart})
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// historyExchanges reads the optional history argument: earlier
// question/SQL pairs that steer generation on follow-ups.
func historyExchanges(req mcp.CallToolRequest) []prompts.Exchange {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := args["history"].([]any)
	if !ok {
		return nil
	}

	var history []prompts.Exchange
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		question, _ := entry["question"].(string)
		sqlText, _ := entry["sql"].(string)
		if question == "" && sqlText == "" {
			continue
		}
		history = append(history, prompts.Exchange{Question: question, SQL: sqlText})
	}
	return history
}
