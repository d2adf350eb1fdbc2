package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// testConfigJSON is the connection object used across the tool tests.
const testConfigJSON = `{"driver": "mysql", "host": "db", "port": 3306, "username": "u", "password": "p", "database": "shop"}`

// mockQueryService implements services.QueryService for testing.
type mockQueryService struct {
	nlResult     *services.NLQueryResult
	directResult *services.DirectSQLResult
	chart        *viz.Chart
	err          error

	gotNLReq  *services.NLQueryRequest
	gotConfig *datasource.ConnectionConfig
	gotSQL    string
}

func (m *mockQueryService) NLQuery(ctx context.Context, req *services.NLQueryRequest) (*services.NLQueryResult, error) {
	m.gotNLReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.nlResult, nil
}

func (m *mockQueryService) StreamNLQuery(ctx context.Context, req *services.NLQueryRequest, emit services.EventSink) error {
	m.gotNLReq = req
	return m.err
}

func (m *mockQueryService) DirectSQL(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*services.DirectSQLResult, error) {
	m.gotConfig = cfg
	m.gotSQL = sqlText
	if m.err != nil {
		return nil, m.err
	}
	return m.directResult, nil
}

func (m *mockQueryService) VisualizeQuery(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*viz.Chart, error) {
	m.gotConfig = cfg
	m.gotSQL = sqlText
	if m.err != nil {
		return nil, m.err
	}
	return m.chart, nil
}

// mockSchemaService implements services.SchemaService for testing.
type mockSchemaService struct {
	structure *services.DatabaseStructure
	graph     *services.Graph
	err       error
	gotConfig *datasource.ConnectionConfig
}

func (m *mockSchemaService) Structure(ctx context.Context, cfg *datasource.ConnectionConfig) (*services.DatabaseStructure, error) {
	m.gotConfig = cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.structure, nil
}

func (m *mockSchemaService) Relationships(ctx context.Context, cfg *datasource.ConnectionConfig) (*services.Graph, error) {
	m.gotConfig = cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.graph, nil
}

// toolResponse is the decoded JSON-RPC reply to one message.
type toolResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool round-trips one JSON-RPC message through the server.
func callTool(t *testing.T, s *server.MCPServer, message string) toolResponse {
	t.Helper()

	raw := s.HandleMessage(context.Background(), []byte(message))
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}

	var resp toolResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

// textContent returns the first text payload of a call, failing the test
// on a protocol error or empty content.
func textContent(t *testing.T, resp toolResponse) string {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("unexpected protocol error: %s", resp.Error.Message)
	}
	if len(resp.Result.Content) == 0 {
		t.Fatal("expected content in response")
	}
	return resp.Result.Content[0].Text
}
