//go:build integration

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/postgres"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/llm"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/testhelpers"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

func TestNLQuery_RoundTrip_Postgres(t *testing.T) {
	pg := testhelpers.GetPostgres(t)

	ctx := context.Background()

	// Seed under a name this test owns; the container is shared.
	_, err := pg.Pool.Exec(ctx, `
		DROP TABLE IF EXISTS roundtrip_users;
		CREATE TABLE roundtrip_users (id INT PRIMARY KEY, name TEXT NOT NULL, created_at TIMESTAMP);
		INSERT INTO roundtrip_users (id, name, created_at) VALUES
			(1, 'Alice', '2024-03-01 09:00:00'),
			(2, 'Bob',   '2024-03-02 09:00:00'),
			(3, 'Carol', '2024-03-03 09:00:00'),
			(4, 'Dan',   '2024-03-04 09:00:00'),
			(5, 'Eve',   '2024-03-05 09:00:00');
	`)
	require.NoError(t, err)

	provider := scriptedProvider(
		"```sql\nSELECT id, name, created_at FROM roundtrip_users ORDER BY created_at DESC LIMIT 3\n```",
		"The three newest users are Eve, Dan and Carol.")

	svc := newRoundTripService(provider)
	result, err := svc.NLQuery(ctx, &NLQueryRequest{
		Config:   pg.Config,
		Question: "list the 3 most recently created users",
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name, created_at FROM roundtrip_users ORDER BY created_at DESC LIMIT 3", result.SQL)
	assert.Equal(t, 3, result.RowCount)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "Eve", result.Rows[0]["name"])
	assert.Equal(t, "Dan", result.Rows[1]["name"])
	assert.Equal(t, "Carol", result.Rows[2]["name"])

	require.Len(t, result.Columns, 3)
	assert.Equal(t, datasource.KindNumber, result.Columns[0].Kind)
	assert.Equal(t, datasource.KindText, result.Columns[1].Kind)
	assert.Equal(t, datasource.KindDateTime, result.Columns[2].Kind)

	require.NotNil(t, result.Chart)
	assert.Equal(t, viz.TypeLine, result.Chart.Type)

	assert.Equal(t, "The three newest users are Eve, Dan and Carol.", result.Answer)
	assert.Equal(t, 2, provider.CompleteCalls)
}

func TestDirectSQL_RoundTrip_Postgres(t *testing.T) {
	pg := testhelpers.GetPostgres(t)

	ctx := context.Background()

	_, err := pg.Pool.Exec(ctx, `
		DROP TABLE IF EXISTS roundtrip_orders;
		CREATE TABLE roundtrip_orders (id INT PRIMARY KEY, total NUMERIC(8,2));
		INSERT INTO roundtrip_orders (id, total) VALUES (1, 19.50), (2, 5.00), (3, 7.25);
	`)
	require.NoError(t, err)

	svc := newRoundTripService(llm.NewMockProvider())

	result, err := svc.DirectSQL(ctx, pg.Config,
		"SELECT COUNT(*) AS n, SUM(total) AS revenue FROM roundtrip_orders")
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowCount)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, datasource.KindNumber, result.Columns[0].Kind)
	assert.Equal(t, datasource.KindNumber, result.Columns[1].Kind)
	assert.Equal(t, int64(3), result.Rows[0]["n"])
	assert.InDelta(t, 31.75, result.Rows[0]["revenue"], 0.001)
}
