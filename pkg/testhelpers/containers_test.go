//go:build integration

package testhelpers

import (
	"context"
	"testing"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	_ "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource/postgres"
)

func TestPostgresContainer_Connection(t *testing.T) {
	pg := GetPostgres(t)

	ctx := context.Background()

	var one int
	if err := pg.Pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Fatalf("failed to ping container: %v", err)
	}
	if one != 1 {
		t.Errorf("expected 1, got %d", one)
	}
}

func TestPostgresContainer_ConfigOpensThroughRegistry(t *testing.T) {
	pg := GetPostgres(t)

	ctx := context.Background()

	// Seed under a name this test owns; the container is shared.
	_, err := pg.Pool.Exec(ctx, `
		DROP TABLE IF EXISTS helper_probe;
		CREATE TABLE helper_probe (id INT PRIMARY KEY, label TEXT NOT NULL);
		INSERT INTO helper_probe (id, label) VALUES (1, 'alpha'), (2, 'beta');
	`)
	if err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}

	conn, err := datasource.Open(ctx, pg.Config, nil)
	if err != nil {
		t.Fatalf("failed to open via config: %v", err)
	}
	defer conn.Close()

	result, err := conn.Query(ctx, "SELECT label FROM helper_probe ORDER BY id", 10)
	if err != nil {
		t.Fatalf("failed to query seeded table: %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", result.RowCount)
	}
	if got := result.Rows[0]["label"]; got != "alpha" {
		t.Errorf("expected first label alpha, got %v", got)
	}
}
