package sql

import "testing"

func TestFirstKeyword(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain select", input: "SELECT 1", want: "select"},
		{name: "lowercase", input: "select * from t", want: "select"},
		{name: "leading whitespace", input: "\n  UPDATE t SET a = 1", want: "update"},
		{name: "leading line comment", input: "-- note\nSELECT 1", want: "select"},
		{name: "leading block comment", input: "/* hint */ INSERT INTO t VALUES (1)", want: "insert"},
		{name: "parenthesized union operand", input: "(SELECT 1) UNION (SELECT 2)", want: "select"},
		{name: "with clause", input: "WITH x AS (SELECT 1) SELECT * FROM x", want: "with"},
		{name: "empty", input: "", want: ""},
		{name: "only comment", input: "-- nothing here", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstKeyword(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsReadLike(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "select", input: "SELECT * FROM users", want: true},
		{name: "show", input: "SHOW TABLES", want: true},
		{name: "explain", input: "EXPLAIN SELECT 1", want: true},
		{name: "describe", input: "DESCRIBE users", want: true},
		{name: "pragma", input: "PRAGMA table_info(users)", want: true},
		{name: "insert", input: "INSERT INTO t VALUES (1)", want: false},
		{name: "update", input: "UPDATE t SET a = 1 WHERE id = 2", want: false},
		{name: "delete", input: "DELETE FROM t WHERE id = 2", want: false},
		{name: "create table", input: "CREATE TABLE t (id INT)", want: false},
		{
			name:  "cte ending in select",
			input: "WITH recent AS (SELECT * FROM orders WHERE ts > now()) SELECT count(*) FROM recent",
			want:  true,
		},
		{
			name:  "data-modifying cte",
			input: "WITH moved AS (SELECT id FROM staging) DELETE FROM live WHERE id IN (SELECT id FROM moved)",
			want:  false,
		},
		{
			name:  "cte named like a verb stays read",
			input: "WITH deleted_items AS (SELECT * FROM trash) SELECT * FROM deleted_items",
			want:  true,
		},
		{
			name:  "update keyword inside string literal",
			input: "SELECT * FROM logs WHERE message = 'please update me'",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReadLike(tt.input); got != tt.want {
				t.Errorf("IsReadLike(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
