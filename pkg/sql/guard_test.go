package sql

import (
	"strings"
	"testing"
)

func TestGuardGeneratedSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantDeny string // substring of the error, empty means allowed
	}{
		{name: "plain select", input: "SELECT * FROM users"},
		{name: "aggregate select", input: "SELECT region, SUM(total) FROM orders GROUP BY region"},
		{name: "targeted update", input: "UPDATE users SET name = 'x' WHERE id = 3"},
		{name: "targeted delete", input: "DELETE FROM sessions WHERE expires_at < now()"},
		{name: "drop table", input: "DROP TABLE users", wantDeny: "DROP TABLE"},
		{name: "drop database", input: "drop database prod", wantDeny: "DROP DATABASE"},
		{name: "truncate", input: "TRUNCATE orders", wantDeny: "TRUNCATE"},
		{name: "blanket delete", input: "DELETE FROM users", wantDeny: "DELETE without WHERE"},
		{name: "blanket update", input: "UPDATE users SET active = 0", wantDeny: "UPDATE without WHERE"},
		{name: "alter drop column", input: "ALTER TABLE users DROP COLUMN email", wantDeny: "ALTER TABLE ... DROP"},
		{name: "alter add column allowed", input: "ALTER TABLE users ADD COLUMN email TEXT"},
		{name: "drop inside string literal allowed", input: "SELECT * FROM logs WHERE msg = 'drop table users'"},
		{name: "truncate inside comment allowed", input: "SELECT 1 -- TRUNCATE\nFROM t"},
		{name: "column named updated_at allowed", input: "SELECT updated_at FROM users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GuardGeneratedSQL(tt.input)
			if tt.wantDeny == "" {
				if err != nil {
					t.Fatalf("unexpected denial: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected denial containing %q, got nil", tt.wantDeny)
			}
			if !strings.Contains(err.Error(), tt.wantDeny) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantDeny)
			}
		})
	}
}
