package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	sqlutil "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// wrapWithLimit bounds a row-returning statement with a derived table.
func wrapWithLimit(sqlText string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlText, limit)
}

// Query runs a row-returning statement. One extra row is requested past the
// limit to detect truncation.
func (c *Conn) Query(ctx context.Context, sqlText string, limit int) (*datasource.QueryResult, error) {
	effective := limit
	if effective <= 0 || effective > datasource.MaxQueryLimit {
		effective = datasource.MaxQueryLimit
	}

	rows, err := c.db.QueryContext(ctx, wrapWithLimit(sqlText, effective+1))
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) > effective {
		result.Rows = result.Rows[:effective]
		result.Truncated = true
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// Execute runs one statement of any shape. The leading keyword decides the
// result path: row-returning statements collect rows, everything else
// reports affected rows.
func (c *Conn) Execute(ctx context.Context, sqlText string) (*datasource.ExecResult, error) {
	if sqlutil.IsReadLike(sqlText) {
		rows, err := c.db.QueryContext(ctx, sqlText)
		if err != nil {
			return nil, fmt.Errorf("execute statement: %w", err)
		}
		defer rows.Close()

		result, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		return &datasource.ExecResult{
			Columns:  result.ColumnNames(),
			Rows:     result.Rows,
			RowCount: len(result.Rows),
		}, nil
	}

	res, err := c.db.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read rows affected: %w", err)
	}
	return &datasource.ExecResult{RowsAffected: affected}, nil
}

// ExecuteWithParams runs a parameterized DML statement. The canonical
// $1, $2 placeholders become positional ?; they must already appear in
// ascending order.
func (c *Conn) ExecuteWithParams(ctx context.Context, sqlText string, params []any) (*datasource.ExecResult, error) {
	res, err := c.db.ExecContext(ctx, convertParams(sqlText), params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read rows affected: %w", err)
	}
	return &datasource.ExecResult{RowsAffected: affected}, nil
}

// Page reads one page of a table.
func (c *Conn) Page(ctx context.Context, table string, limit, offset int) (*datasource.QueryResult, error) {
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", c.QuoteIdentifier(table), limit, offset)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read table page: %w", err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// Explain returns the query plan's detail lines.
func (c *Conn) Explain(ctx context.Context, sqlText string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+sqlText)
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if detail, ok := row["detail"].(string); ok {
			lines = append(lines, detail)
			continue
		}
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			v := row[col.Name]
			if v == nil {
				continue
			}
			parts = append(parts, col.Name+"="+datasource.RenderValue(v))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}
	return lines, nil
}

// collectRows drains a result set into the shared result shape. Declared
// types are free-form and absent for computed columns, so columns without
// one take their type from the first non-null value.
func collectRows(rows *sql.Rows) (*datasource.QueryResult, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	declared := make([]string, len(names))
	for i := range types {
		declared[i] = normalizeType(types[i].DatabaseTypeName())
	}

	out := make([]map[string]any, 0)
	firstValues := make([]any, len(names))
	for rows.Next() {
		values := make([]any, len(names))
		valuePtrs := make([]any, len(names))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(names))
		for i, name := range names {
			if firstValues[i] == nil && values[i] != nil {
				firstValues[i] = values[i]
			}
			rowMap[name] = values[i]
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	columns := make([]datasource.ResultColumn, len(names))
	for i, name := range names {
		typeName := declared[i]
		if typeName == "" {
			typeName = inferType(firstValues[i])
		}
		columns[i] = datasource.ResultColumn{
			Name: name,
			Type: typeName,
			Kind: datasource.KindOfType(typeName),
		}
	}

	return &datasource.QueryResult{Columns: columns, Rows: out, RowCount: len(out)}, nil
}

// collectSample renders every row as display strings for prompt samples.
func collectSample(rows *sql.Rows) ([]string, [][]string, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out [][]string
	for rows.Next() {
		values := make([]any, len(names))
		valuePtrs := make([]any, len(names))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("scan sample row: %w", err)
		}

		cells := make([]string, len(names))
		for i := range values {
			cells[i] = datasource.RenderValue(values[i])
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return names, out, nil
}

// normalizeType uppercases a declared type and drops its length suffix.
func normalizeType(declared string) string {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// inferType picks a type name from a scanned value's storage class.
func inferType(v any) string {
	switch v.(type) {
	case int64:
		return "INTEGER"
	case float64:
		return "REAL"
	case bool:
		return "BOOLEAN"
	case string:
		return "TEXT"
	case []byte:
		return "BLOB"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

var paramPattern = regexp.MustCompile(`\$\d+`)

// convertParams rewrites $1, $2, ... placeholders to positional ?.
func convertParams(sqlText string) string {
	return paramPattern.ReplaceAllString(sqlText, "?")
}
