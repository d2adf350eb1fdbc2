package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// fakeConn is a scriptable datasource.Conn. Unset function fields return
// zero values; call records let tests assert what reached the driver.
type fakeConn struct {
	dialect string

	describeFunc func(ctx context.Context, sampleRows int) (*datasource.SchemaDescription, error)
	queryFunc    func(ctx context.Context, sqlText string, limit int) (*datasource.QueryResult, error)
	executeFunc  func(ctx context.Context, sqlText string) (*datasource.ExecResult, error)
	paramsFunc   func(ctx context.Context, sqlText string, params []any) (*datasource.ExecResult, error)
	pageFunc     func(ctx context.Context, table string, limit, offset int) (*datasource.QueryResult, error)
	explainFunc  func(ctx context.Context, sqlText string) ([]string, error)
	countFunc    func(ctx context.Context, table string) (int64, error)
	listFunc     func(ctx context.Context) ([]string, error)

	queriedSQL  []string
	executedSQL []string
	closed      bool
}

func (f *fakeConn) DescribeSchema(ctx context.Context, sampleRows int) (*datasource.SchemaDescription, error) {
	if f.describeFunc != nil {
		return f.describeFunc(ctx, sampleRows)
	}
	return &datasource.SchemaDescription{Database: "testdb", Dialect: f.Dialect()}, nil
}

func (f *fakeConn) ListDatabases(ctx context.Context) ([]string, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx)
	}
	return []string{"testdb"}, nil
}

func (f *fakeConn) CountRows(ctx context.Context, table string) (int64, error) {
	if f.countFunc != nil {
		return f.countFunc(ctx, table)
	}
	return 0, nil
}

func (f *fakeConn) Query(ctx context.Context, sqlText string, limit int) (*datasource.QueryResult, error) {
	f.queriedSQL = append(f.queriedSQL, sqlText)
	if f.queryFunc != nil {
		return f.queryFunc(ctx, sqlText, limit)
	}
	return &datasource.QueryResult{}, nil
}

func (f *fakeConn) Execute(ctx context.Context, sqlText string) (*datasource.ExecResult, error) {
	f.executedSQL = append(f.executedSQL, sqlText)
	if f.executeFunc != nil {
		return f.executeFunc(ctx, sqlText)
	}
	return &datasource.ExecResult{}, nil
}

func (f *fakeConn) ExecuteWithParams(ctx context.Context, sqlText string, params []any) (*datasource.ExecResult, error) {
	f.executedSQL = append(f.executedSQL, sqlText)
	if f.paramsFunc != nil {
		return f.paramsFunc(ctx, sqlText, params)
	}
	return &datasource.ExecResult{}, nil
}

func (f *fakeConn) Page(ctx context.Context, table string, limit, offset int) (*datasource.QueryResult, error) {
	if f.pageFunc != nil {
		return f.pageFunc(ctx, table, limit, offset)
	}
	return &datasource.QueryResult{}, nil
}

func (f *fakeConn) Explain(ctx context.Context, sqlText string) ([]string, error) {
	if f.explainFunc != nil {
		return f.explainFunc(ctx, sqlText)
	}
	return nil, nil
}

func (f *fakeConn) Dialect() string {
	if f.dialect == "" {
		return datasource.DriverMySQL
	}
	return f.dialect
}

func (f *fakeConn) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (f *fakeConn) TestConnection(ctx context.Context) error { return nil }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

var _ datasource.Conn = (*fakeConn)(nil)

// openerFor returns an Opener that hands out conn, recording the config
// it was called with.
func openerFor(conn *fakeConn, gotCfg **datasource.ConnectionConfig) Opener {
	return func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.Conn, error) {
		if gotCfg != nil {
			*gotCfg = cfg
		}
		return conn, nil
	}
}

// failingOpener always fails with the given message.
func failingOpener(message string) Opener {
	return func(ctx context.Context, cfg *datasource.ConnectionConfig, logger *zap.Logger) (datasource.Conn, error) {
		return nil, errors.New(message)
	}
}

// shopSchema is a two-table fixture shared across service tests.
func shopSchema() *datasource.SchemaDescription {
	usersRows := int64(250)
	ordersRows := int64(1200)
	return &datasource.SchemaDescription{
		Database: "shop",
		Dialect:  datasource.DriverMySQL,
		Tables: []datasource.TableInfo{
			{
				Name:     "users",
				RowCount: &usersRows,
				Columns: []datasource.ColumnInfo{
					{Name: "id", DataType: "INTEGER", IsPrimaryKey: true},
					{Name: "email", DataType: "VARCHAR", Nullable: false},
					{Name: "created_at", DataType: "TIMESTAMP", Nullable: true},
				},
				SampleColumns: []string{"id", "email"},
				SampleRows:    [][]string{{"1", "a@example.com"}},
			},
			{
				Name:     "orders",
				RowCount: &ordersRows,
				Columns: []datasource.ColumnInfo{
					{Name: "id", DataType: "INTEGER", IsPrimaryKey: true},
					{Name: "user_id", DataType: "INTEGER", Nullable: false},
					{Name: "total", DataType: "DECIMAL", Nullable: false},
				},
				ForeignKeys: []datasource.ForeignKeyInfo{
					{ConstraintName: "fk_orders_user", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
				},
			},
		},
	}
}

func testConnectionConfig() *datasource.ConnectionConfig {
	return &datasource.ConnectionConfig{
		Driver:   datasource.DriverMySQL,
		Host:     "localhost",
		Port:     3306,
		Username: "reader",
		Password: "secret",
		Database: "shop",
	}
}
