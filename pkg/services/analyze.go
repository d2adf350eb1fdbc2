package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// Analysis is the outcome of analyze-query: the dialect's execution plan,
// advisory hints read from it, and a static complexity score.
type Analysis struct {
	Plan       []string          `json:"plan"`
	Hints      []string          `json:"hints"`
	Complexity sqlpkg.Complexity `json:"complexity"`
}

// AnalyzeService inspects statements without running them to completion.
type AnalyzeService interface {
	Analyze(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*Analysis, error)
}

type analyzeService struct {
	conns  ConnectionService
	cfg    *config.QueryConfig
	logger *zap.Logger
}

// NewAnalyzeService creates the analyze service.
func NewAnalyzeService(conns ConnectionService, cfg *config.QueryConfig, logger *zap.Logger) AnalyzeService {
	return &analyzeService{conns: conns, cfg: cfg, logger: logger.Named("analyze")}
}

func (s *analyzeService) Analyze(ctx context.Context, cfg *datasource.ConnectionConfig, sqlText string) (*Analysis, error) {
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

	plan, err := conn.Explain(execCtx, stmt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageSQLExecution, err)
	}

	return &Analysis{
		Plan:       plan,
		Hints:      planHints(plan),
		Complexity: sqlpkg.AnalyzeComplexity(stmt),
	}, nil
}

// planHints reads advisory hints out of an execution plan. The markers
// cover the plan vocabularies of all four dialects; matching is
// case-insensitive substring search.
func planHints(plan []string) []string {
	var hints []string
	text := strings.ToLower(strings.Join(plan, "\n"))

	if containsAny(text, "seq scan", "table scan", "clustered index scan", "type=all") || hasScanLine(plan) {
		hints = append(hints, "Full table scan detected - consider adding an index if this table is large")
	}

	if strings.Contains(text, "missing index") {
		hints = append(hints, "The database suggests a missing index - review the plan for index recommendations")
	}

	if containsAny(text, "nested loop", "nested loops") {
		hints = append(hints, "Nested loop join detected - ensure join columns are indexed for better performance")
	}

	if containsAny(text, "hash join", "hash match") {
		hints = append(hints, "Hash join detected - an index on join columns may improve performance")
	}

	if containsAny(text, "using filesort", "external merge", "sort(") {
		hints = append(hints, "Sort spills into the plan - an index matching the requested order could avoid it")
	}

	if strings.Contains(text, "using temporary") {
		hints = append(hints, "Query builds a temporary table - consider simplifying grouping or adding an index")
	}

	if len(hints) == 0 {
		hints = append(hints, "Query plan looks efficient - no obvious optimization opportunities detected")
	}
	return hints
}

// hasScanLine spots SQLite's bare "SCAN <table>" plan lines without
// tripping on the word scan inside other dialects' operator names.
func hasScanLine(plan []string) bool {
	for _, line := range plan {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "SCAN ") {
			return true
		}
	}
	return false
}

func containsAny(text string, markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
