package handlers

import (
	"context"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// mockQueryService is a configurable mock for query handler tests.
type mockQueryService struct {
	nlResult     *services.NLQueryResult
	directResult *services.DirectSQLResult
	chart        *viz.Chart
	events       []*services.StreamEvent
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

func (m *mockQueryService) StreamNLQuery(ctx context.Context, req *services.NLQueryRequest, emit services.EventSink) error {
	m.gotNLReq = req
	for _, event := range m.events {
		if err := emit(event); err != nil {
			return err
		}
	}
	return m.err
}

// mockSchemaService is a configurable mock for schema handler tests.
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

// mockTableService is a configurable mock for table handler tests.
type mockTableService struct {
	page     *services.TablePage
	affected int64
	err      error

	gotTable  string
	gotPage   int
	gotLimit  int
	gotUpdate *services.UpdateRowRequest
}

func (m *mockTableService) Page(ctx context.Context, cfg *datasource.ConnectionConfig, table string, page, limit int) (*services.TablePage, error) {
	m.gotTable = table
	m.gotPage = page
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func (m *mockTableService) UpdateRow(ctx context.Context, cfg *datasource.ConnectionConfig, req *services.UpdateRowRequest) (int64, error) {
	m.gotUpdate = req
	if m.err != nil {
		return 0, m.err
	}
	return m.affected, nil
}

// mockConnectionService is a configurable mock for connection handler tests.
type mockConnectionService struct {
	databases []string
	err       error

	gotConfig *datasource.ConnectionConfig
}

func (m *mockConnectionService) Connect(ctx context.Context, cfg *datasource.ConnectionConfig) (datasource.Conn, error) {
	return nil, m.err
}

func (m *mockConnectionService) TestConnection(ctx context.Context, cfg *datasource.ConnectionConfig) ([]string, error) {
	m.gotConfig = cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.databases, nil
}

// mockAnalyzeService is a configurable mock for analyze handler tests.
type mockAnalyzeService struct {
	analysis *services.Analysis
	err      error

	gotSQL string
}

func (m *mockAnalyzeService) Analyze(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*services.Analysis, error) {
	m.gotSQL = sqlText
	if m.err != nil {
		return nil, m.err
	}
	return m.analysis, nil
}
