package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

func newTestAnalyzeService(conn *fakeConn) AnalyzeService {
	logger := zap.NewNop()
	return NewAnalyzeService(NewConnectionService(openerFor(conn, nil), logger), testQueryConfig(), logger)
}

func TestPlanHints(t *testing.T) {
	tests := []struct {
		name string
		plan []string
		want []string // one distinctive fragment per expected hint, in order
	}{
		{
			name: "postgres seq scan",
			plan: []string{"Seq Scan on users  (cost=0.00..35.50 rows=2550 width=244)"},
			want: []string{"Full table scan"},
		},
		{
			name: "mysql full scan with temporary and filesort",
			plan: []string{"id=1  select_type=SIMPLE  table=users  type=ALL  rows=2500  Extra=Using temporary; Using filesort"},
			want: []string{"Full table scan", "Sort spills", "temporary table"},
		},
		{
			name: "sqlite scan line",
			plan: []string{"SCAN users"},
			want: []string{"Full table scan"},
		},
		{
			name: "sqlite search uses index",
			plan: []string{"SEARCH users USING INDEX idx_users_email (email=?)"},
			want: []string{"looks efficient"},
		},
		{
			name: "sqlserver hash match over clustered index scan",
			plan: []string{
				"  |--Hash Match(Inner Join, HASH:([u].[id])=([o].[user_id]))",
				"       |--Clustered Index Scan(OBJECT:([shop].[dbo].[users].[PK_users]))",
			},
			want: []string{"Full table scan", "Hash join"},
		},
		{
			name: "sqlserver missing index",
			plan: []string{"Missing Index Details: CREATE NONCLUSTERED INDEX IX_users_email ON dbo.users (email)"},
			want: []string{"missing index"},
		},
		{
			name: "postgres nested loop spilling its sort",
			plan: []string{
				"Nested Loop  (cost=0.29..24.66 rows=5 width=488)",
				"  Sort Method: external merge  Disk: 10240kB",
			},
			want: []string{"Nested loop", "Sort spills"},
		},
		{
			name: "postgres index scan is clean",
			plan: []string{"Index Scan using users_pkey on users  (cost=0.29..8.31 rows=1 width=244)"},
			want: []string{"looks efficient"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := planHints(tt.plan)
			require.Len(t, hints, len(tt.want))
			for i, fragment := range tt.want {
				assert.Contains(t, hints[i], fragment)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	conn := &fakeConn{
		explainFunc: func(ctx context.Context, sqlText string) ([]string, error) {
			assert.Equal(t, "SELECT * FROM users", sqlText)
			return []string{"SCAN users"}, nil
		},
	}
	svc := newTestAnalyzeService(conn)

	analysis, err := svc.Analyze(context.Background(), testConnectionConfig(), "SELECT * FROM users;")
	require.NoError(t, err)
	assert.Equal(t, []string{"SCAN users"}, analysis.Plan)
	require.Len(t, analysis.Hints, 1)
	assert.Contains(t, analysis.Hints[0], "Full table scan")
	assert.Equal(t, sqlpkg.ComplexitySimple, analysis.Complexity.Level)
	assert.True(t, conn.closed)
}

func TestAnalyze_CountsJoinsAndGrouping(t *testing.T) {
	conn := &fakeConn{
		explainFunc: func(ctx context.Context, sqlText string) ([]string, error) {
			return []string{"Hash Join  (cost=1.09..2.29 rows=5 width=36)"}, nil
		},
	}
	svc := newTestAnalyzeService(conn)

	analysis, err := svc.Analyze(context.Background(), testConnectionConfig(),
		"SELECT u.name, COUNT(*) FROM users u JOIN orders o ON o.user_id = u.id GROUP BY u.name")
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.Complexity.Joins)
	assert.True(t, analysis.Complexity.Grouping)
	assert.Contains(t, analysis.Hints[0], "Hash join")
}

func TestAnalyze_RejectsMultipleStatements(t *testing.T) {
	svc := NewAnalyzeService(
		NewConnectionService(failingOpener("must not connect"), zap.NewNop()),
		testQueryConfig(), zap.NewNop())

	_, err := svc.Analyze(context.Background(), testConnectionConfig(), "SELECT 1; SELECT 2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMultipleStatements))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestAnalyze_ExplainFailure(t *testing.T) {
	conn := &fakeConn{
		explainFunc: func(ctx context.Context, sqlText string) ([]string, error) {
			return nil, assert.AnError
		},
	}
	svc := newTestAnalyzeService(conn)

	_, err := svc.Analyze(context.Background(), testConnectionConfig(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindQuery, apperrors.KindOf(err))
	assert.Equal(t, apperrors.StageSQLExecution, apperrors.StageOf(err))
}
