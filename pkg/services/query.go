package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/llm"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/logging"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/prompts"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// answerFallback is returned in place of the explanation when generation
// and execution succeeded but the explanation call did not.
const answerFallback = "The query ran successfully, but an explanation could not be generated."

// NLQueryRequest is one natural-language query with its connection target
// and optional conversation context.
type NLQueryRequest struct {
	Config   *datasource.ConnectionConfig
	Question string
	History  []prompts.Exchange
}

// NLQueryResult is the full outcome of the natural-language pipeline.
type NLQueryResult struct {
	SQL          string                    `json:"sql"`
	Explanation  string                    `json:"explanation,omitempty"`
	Answer       string                    `json:"answer,omitempty"`
	Columns      []datasource.ResultColumn `json:"columns,omitempty"`
	Rows         []map[string]any          `json:"rows,omitempty"`
	RowCount     int                       `json:"row_count"`
	Truncated    bool                      `json:"truncated,omitempty"`
	AffectedRows *int64                    `json:"affected_rows,omitempty"`
	Chart        *viz.Chart                `json:"chart,omitempty"`
}

// DirectSQLResult is the outcome of one caller-written statement.
// Row-returning statements fill Columns and Rows; plain DML fills
// AffectedRows.
type DirectSQLResult struct {
	Columns      []datasource.ResultColumn `json:"columns,omitempty"`
	Rows         []map[string]any          `json:"rows,omitempty"`
	RowCount     int                       `json:"row_count"`
	Truncated    bool                      `json:"truncated,omitempty"`
	AffectedRows *int64                    `json:"affected_rows,omitempty"`
}

// QueryService runs the question-to-answer pipeline and its direct-SQL
// variants.
type QueryService interface {
	// NLQuery translates the question into SQL, executes it and explains
	// the results. Explanation failure degrades to a fallback notice;
	// every other stage failure aborts the call.
	NLQuery(ctx context.Context, req *NLQueryRequest) (*NLQueryResult, error)

	// StreamNLQuery runs the same pipeline, reporting progress through
	// emit as NDJSON-ready events. Pipeline failures are emitted as an
	// error event and returned; a failing sink aborts immediately.
	StreamNLQuery(ctx context.Context, req *NLQueryRequest, emit EventSink) error

	// DirectSQL runs one caller-written statement. No dangerous-pattern
	// screening beyond the single-statement rule.
	DirectSQL(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*DirectSQLResult, error)

	// VisualizeQuery runs a row-returning statement and picks a chart
	// for its result.
	VisualizeQuery(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*viz.Chart, error)
}

type queryService struct {
	conns   ConnectionService
	gateway *llm.Gateway
	cfg     *config.QueryConfig
	logger  *zap.Logger
}

// NewQueryService creates the query service.
func NewQueryService(conns ConnectionService, gateway *llm.Gateway, cfg *config.QueryConfig, logger *zap.Logger) QueryService {
	return &queryService{
		conns:   conns,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.Named("query"),
	}
}

func (s *queryService) NLQuery(ctx context.Context, req *NLQueryRequest) (*NLQueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StagePromptAssembly, apperrors.ErrEmptyQuestion)
	}

	conn, err := s.conns.Connect(ctx, req.Config)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stmt, explanation, err := s.generateSQL(ctx, conn, question, req.History)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Generated SQL",
		zap.String("question", question),
		zap.String("sql", logging.SanitizeQuery(stmt)))

	result := &NLQueryResult{SQL: stmt, Explanation: explanation}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var answerInput *prompts.AnswerPromptInput
	if sqlpkg.IsReadLike(stmt) {
		queryResult, err := conn.Query(execCtx, stmt, s.cfg.MaxRows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
		}
		result.Columns = queryResult.Columns
		result.Rows = queryResult.Rows
		result.RowCount = queryResult.RowCount
		result.Truncated = queryResult.Truncated
		result.Chart = viz.Select(queryResult)
		answerInput = answerInputForRows(question, stmt, queryResult)
	} else {
		execResult, err := conn.Execute(execCtx, stmt)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
		}
		affected := execResult.RowsAffected
		result.AffectedRows = &affected
		result.RowCount = execResult.RowCount
		answerInput = answerInputForAffected(question, stmt, affected)
	}

	result.Answer = s.explain(ctx, answerInput)
	return result, nil
}

func (s *queryService) DirectSQL(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*DirectSQLResult, error) {
	validation := sqlpkg.ValidateAndNormalize(sqlText)
	if validation.Error != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, validation.Error)
	}
	stmt := validation.NormalizedSQL

	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if sqlpkg.IsReadLike(stmt) {
		queryResult, err := conn.Query(execCtx, stmt, s.cfg.MaxRows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
		}
		return &DirectSQLResult{
			Columns:   queryResult.Columns,
			Rows:      queryResult.Rows,
			RowCount:  queryResult.RowCount,
			Truncated: queryResult.Truncated,
		}, nil
	}

	execResult, err := conn.Execute(execCtx, stmt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}
	if len(execResult.Columns) > 0 {
		// INSERT ... RETURNING and friends: rows without type metadata.
		columns := make([]datasource.ResultColumn, len(execResult.Columns))
		for i, name := range execResult.Columns {
			columns[i] = datasource.ResultColumn{Name: name, Kind: datasource.KindOther}
		}
		return &DirectSQLResult{
			Columns:  columns,
			Rows:     execResult.Rows,
			RowCount: execResult.RowCount,
		}, nil
	}
	affected := execResult.RowsAffected
	return &DirectSQLResult{AffectedRows: &affected}, nil
}

func (s *queryService) VisualizeQuery(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*viz.Chart, error) {
	validation := sqlpkg.ValidateAndNormalize(sqlText)
	if validation.Error != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, validation.Error)
	}
	stmt := validation.NormalizedSQL
	if !sqlpkg.IsReadLike(stmt) {
		return nil, apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation,
			"only row-returning statements can be visualized")
	}

	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	queryResult, err := conn.Query(execCtx, stmt, s.cfg.MaxRows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}
	return viz.Select(queryResult), nil
}

// generateSQL runs introspection, prompt assembly, generation and
// validation, returning the statement ready to execute.
func (s *queryService) generateSQL(ctx context.Context, conn datasource.Conn, question string, history []prompts.Exchange) (stmt, explanation string, err error) {
	schema, err := conn.DescribeSchema(ctx, s.cfg.SampleRows)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindQuery, apperrors.StageIntrospection, err)
	}

	prompt, err := prompts.BuildSQLPrompt(&prompts.SQLPromptInput{
		Dialect:  conn.Dialect(),
		Database: schema.Database,
		Question: question,
		Tables:   promptTables(schema),
		History:  s.cappedHistory(history),
		Budget:   s.cfg.PromptBudget,
	})
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindValidation, apperrors.StagePromptAssembly, err)
	}

	extraction, err := s.gateway.GenerateSQL(ctx, prompt)
	if err != nil {
		return "", "", err
	}

	validation := sqlpkg.ValidateAndNormalize(extraction.SQL)
	if validation.Error != nil {
		return "", "", apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, validation.Error)
	}
	stmt = validation.NormalizedSQL

	if !sqlpkg.IsReadLike(stmt) {
		if err := sqlpkg.GuardGeneratedSQL(stmt); err != nil {
			return "", "", apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, err)
		}
	}
	return stmt, extraction.Explanation, nil
}

// explain runs the second model call. Failures degrade to a notice: the
// rows are already in hand and a missing explanation must not discard them.
func (s *queryService) explain(ctx context.Context, in *prompts.AnswerPromptInput) string {
	answer, err := s.gateway.ExplainResults(ctx, prompts.BuildAnswerPrompt(in))
	if err != nil {
		s.logger.Warn("Explanation failed, serving fallback",
			zap.String("error", logging.SanitizeError(err)))
		return answerFallback
	}
	return answer
}

// cappedHistory keeps the newest exchanges, oldest dropped first.
func (s *queryService) cappedHistory(history []prompts.Exchange) []prompts.Exchange {
	if s.cfg.MaxHistory > 0 && len(history) > s.cfg.MaxHistory {
		return history[len(history)-s.cfg.MaxHistory:]
	}
	return history
}

// promptTables converts introspected tables into the prompt-facing shape.
func promptTables(schema *datasource.SchemaDescription) []prompts.TableContext {
	tables := make([]prompts.TableContext, len(schema.Tables))
	for i := range schema.Tables {
		t := &schema.Tables[i]

		columns := make([]prompts.ColumnContext, len(t.Columns))
		for j, col := range t.Columns {
			columns[j] = prompts.ColumnContext{
				Name:         col.Name,
				DataType:     col.DataType,
				Nullable:     col.Nullable,
				IsPrimaryKey: col.IsPrimaryKey,
				Default:      col.Default,
			}
		}

		keys := make([]prompts.ForeignKeyContext, len(t.ForeignKeys))
		for j, fk := range t.ForeignKeys {
			keys[j] = prompts.ForeignKeyContext{
				Column:           fk.Column,
				ReferencedTable:  fk.ReferencedTable,
				ReferencedColumn: fk.ReferencedColumn,
			}
		}

		tables[i] = prompts.TableContext{
			Name:          t.Name,
			RowCount:      t.RowCount,
			Columns:       columns,
			ForeignKeys:   keys,
			SampleColumns: t.SampleColumns,
			SampleRows:    t.SampleRows,
		}
	}
	return tables
}

// answerInputForRows renders a bounded result snapshot for the
// explanation prompt.
func answerInputForRows(question, stmt string, result *datasource.QueryResult) *prompts.AnswerPromptInput {
	names := result.ColumnNames()

	limit := len(result.Rows)
	if limit > prompts.MaxAnswerRows {
		limit = prompts.MaxAnswerRows
	}
	rendered := make([][]string, limit)
	for i := 0; i < limit; i++ {
		row := make([]string, len(names))
		for j, name := range names {
			row[j] = datasource.RenderValue(result.Rows[i][name])
		}
		rendered[i] = row
	}

	return &prompts.AnswerPromptInput{
		Question:  question,
		SQL:       stmt,
		Columns:   names,
		Rows:      rendered,
		TotalRows: result.RowCount,
	}
}

func answerInputForAffected(question, stmt string, affected int64) *prompts.AnswerPromptInput {
	return &prompts.AnswerPromptInput{
		Question:  question,
		SQL:       stmt,
		Columns:   []string{"rows_affected"},
		Rows:      [][]string{{strconv.FormatInt(affected, 10)}},
		TotalRows: 1,
	}
}
