package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// Paging bounds for table browsing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// TablePage is one window of a table's rows.
type TablePage struct {
	Columns []datasource.ResultColumn `json:"columns"`
	Rows    []map[string]any          `json:"rows"`
	Total   int64                     `json:"total"`
	Page    int                       `json:"page"`
	Limit   int                       `json:"limit"`
}

// UpdateRowRequest identifies one row by primary key and carries the new
// column values.
type UpdateRowRequest struct {
	Table        string
	PrimaryKey   string
	PrimaryValue any
	Row          map[string]any
}

// TableService serves row browsing and single-row edits. Every identifier
// that reaches SQL is resolved against the introspected schema first; the
// request's spelling never lands in a statement.
type TableService interface {
	// Page reads one page of a table. Page numbers start at 1; limit
	// defaults to DefaultPageSize and caps at MaxPageSize.
	Page(ctx context.Context, cfg *datasource.ConnectionConfig, table string, page, limit int) (*TablePage, error)

	// UpdateRow updates the columns of one row selected by primary key.
	// Values travel as bind parameters only.
	UpdateRow(ctx context.Context, cfg *datasource.ConnectionConfig, req *UpdateRowRequest) (int64, error)
}

type tableService struct {
	conns  ConnectionService
	cfg    *config.QueryConfig
	logger *zap.Logger
}

// NewTableService creates the table service.
func NewTableService(conns ConnectionService, cfg *config.QueryConfig, logger *zap.Logger) TableService {
	return &tableService{conns: conns, cfg: cfg, logger: logger.Named("table")}
}

func (s *tableService) Page(ctx context.Context, cfg *datasource.ConnectionConfig, table string, page, limit int) (*TablePage, error) {
	if strings.TrimSpace(table) == "" {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation, "table name is required")
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	info, err := resolveTable(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	total, err := conn.CountRows(execCtx, info.Name)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}

	result, err := conn.Page(execCtx, info.Name, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}

	return &TablePage{
		Columns: result.Columns,
		Rows:    result.Rows,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

func (s *tableService) UpdateRow(ctx context.Context, cfg *datasource.ConnectionConfig, req *UpdateRowRequest) (int64, error) {
	if strings.TrimSpace(req.Table) == "" {
		return 0, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation, "table name is required")
	}
	if strings.TrimSpace(req.PrimaryKey) == "" {
		return 0, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation, "primary key column is required")
	}
	if len(req.Row) == 0 {
		return 0, apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, apperrors.ErrEmptyRowUpdate)
	}

	if err := s.screenValues(req); err != nil {
		return 0, err
	}

	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	info, err := resolveTable(ctx, conn, req.Table)
	if err != nil {
		return 0, err
	}

	keyColumn := info.Column(req.PrimaryKey)
	if keyColumn == nil {
		return 0, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation,
			fmt.Sprintf("column %q does not exist in table %q", req.PrimaryKey, info.Name))
	}

	// Deterministic statement shape: map order is randomized.
	names := make([]string, 0, len(req.Row))
	for name := range req.Row {
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names))
	params := make([]any, 0, len(names)+1)
	for i, name := range names {
		column := info.Column(name)
		if column == nil {
			return 0, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation,
				fmt.Sprintf("column %q does not exist in table %q", name, info.Name))
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", conn.QuoteIdentifier(column.Name), i+1))
		params = append(params, req.Row[name])
	}
	params = append(params, req.PrimaryValue)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteTableRef(conn, info.Name),
		strings.Join(assignments, ", "),
		conn.QuoteIdentifier(keyColumn.Name),
		len(names)+1)

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := conn.ExecuteWithParams(execCtx, stmt, params)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}

	s.logger.Info("Row updated",
		zap.String("table", info.Name),
		zap.Int("columns", len(names)),
		zap.Int64("rows_affected", result.RowsAffected))
	return result.RowsAffected, nil
}

// screenValues runs the injection detector over every request-supplied
// value before any statement is built.
func (s *tableService) screenValues(req *UpdateRowRequest) error {
	if hit := sqlpkg.CheckParameterForInjection("primary_value", req.PrimaryValue); hit != nil {
		s.logger.Warn("Injection pattern in primary value",
			zap.String("fingerprint", hit.Fingerprint))
		return apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation,
			"primary key value failed the SQL injection screen")
	}
	for _, hit := range sqlpkg.CheckAllParameters(req.Row) {
		s.logger.Warn("Injection pattern in row value",
			zap.String("param", hit.ParamName),
			zap.String("fingerprint", hit.Fingerprint))
		return apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation,
			fmt.Sprintf("value for column %q failed the SQL injection screen", hit.ParamName))
	}
	return nil
}

// resolveTable maps the request's table name onto its introspected entry.
func resolveTable(ctx context.Context, conn datasource.Conn, table string) (*datasource.TableInfo, error) {
	schema, err := conn.DescribeSchema(ctx, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageIntrospection, err)
	}
	info := schema.Table(strings.TrimSpace(table))
	if info == nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation,
			fmt.Errorf("table %q: %w", table, apperrors.ErrUnknownTable))
	}
	return info, nil
}
