package sql

import "testing"

func TestParseSelectColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string // expected column names, nil means indeterminate
	}{
		{
			name:  "plain columns",
			input: "SELECT id, name, email FROM users",
			want:  []string{"id", "name", "email"},
		},
		{
			name:  "qualified columns",
			input: "SELECT u.name, o.total FROM users u JOIN orders o ON o.user_id = u.id",
			want:  []string{"name", "total"},
		},
		{
			name:  "as aliases",
			input: "SELECT name AS customer_name, COUNT(*) AS order_count FROM orders GROUP BY name",
			want:  []string{"customer_name", "order_count"},
		},
		{
			name:  "implicit alias",
			input: "SELECT COUNT(*) total FROM orders",
			want:  []string{"total"},
		},
		{
			name:  "bare function",
			input: "SELECT SUM(amount) FROM sales",
			want:  []string{"sum"},
		},
		{
			name:  "function over qualified column",
			input: "SELECT MAX(o.total) FROM orders o",
			want:  []string{"max"},
		},
		{
			name:  "case expression",
			input: "SELECT CASE WHEN a > 0 THEN 'pos' ELSE 'neg' END FROM t",
			want:  []string{"case_result"},
		},
		{
			name:  "function args with commas stay together",
			input: "SELECT COALESCE(nick, name), id FROM users",
			want:  []string{"coalesce", "id"},
		},
		{
			name:  "comma inside string literal",
			input: "SELECT CONCAT(first, ', ', last) AS full_name FROM users",
			want:  []string{"full_name"},
		},
		{
			name:  "wildcard is indeterminate",
			input: "SELECT * FROM users",
			want:  nil,
		},
		{
			name:  "qualified wildcard is indeterminate",
			input: "SELECT u.* FROM users u",
			want:  nil,
		},
		{
			name:  "non-select",
			input: "UPDATE users SET name = 'x' WHERE id = 1",
			want:  nil,
		},
		{
			name:  "cte top-level select",
			input: "WITH recent AS (SELECT * FROM orders) SELECT region, COUNT(*) AS n FROM recent GROUP BY region",
			want:  []string{"region", "n"},
		},
		{
			name:  "distinct skipped",
			input: "SELECT DISTINCT city FROM users",
			want:  []string{"city"},
		},
		{
			name:  "quoted alias",
			input: `SELECT SUM(total) AS "Grand Total" FROM orders`,
			want:  []string{"Grand Total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSelectColumns(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d columns (%v), want %d", len(got), got, len(tt.want))
			}
			for i, col := range got {
				if col.Name != tt.want[i] {
					t.Errorf("column %d = %q, want %q", i, col.Name, tt.want[i])
				}
			}
		})
	}
}
