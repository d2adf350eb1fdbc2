package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// wrapWithLimit bounds a row-returning statement with a derived table,
// which keeps ORDER BY and CTEs in the original text intact.
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

	rows, err := c.pool.Query(ctx, wrapWithLimit(sqlText, effective+1))
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

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

// Execute runs one statement of any shape. The wire protocol reports a row
// description for row-returning statements (including INSERT ... RETURNING),
// so the result shape follows from one round trip; plain DML is drained and
// the affected count read from the command tag.
func (c *Conn) Execute(ctx context.Context, sqlText string) (*datasource.ExecResult, error) {
	rows, err := c.pool.Query(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}

	if len(rows.FieldDescriptions()) > 0 {
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

	for rows.Next() {
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	return &datasource.ExecResult{RowsAffected: rows.CommandTag().RowsAffected()}, nil
}

// ExecuteWithParams runs a parameterized DML statement. The canonical
// $1, $2 placeholders are already native here, so the text passes through
// untouched.
func (c *Conn) ExecuteWithParams(ctx context.Context, sqlText string, params []any) (*datasource.ExecResult, error) {
	tag, err := c.pool.Exec(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	return &datasource.ExecResult{RowsAffected: tag.RowsAffected()}, nil
}

// Page reads one page of a table.
func (c *Conn) Page(ctx context.Context, table string, limit, offset int) (*datasource.QueryResult, error) {
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", c.tableRef(table), limit, offset)
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read table page: %w", err)
	}

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// Explain returns the planner's text plan, one line per plan row.
func (c *Conn) Explain(ctx context.Context, sqlText string) ([]string, error) {
	rows, err := c.pool.Query(ctx, "EXPLAIN "+sqlText)
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan plan line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan lines: %w", err)
	}
	return lines, nil
}

// collectRows drains a result set into the shared result shape. Column kinds
// come from the wire-level type OIDs, so charts see the same kinds regardless
// of which statement produced the rows.
func collectRows(rows pgx.Rows) (*datasource.QueryResult, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]datasource.ResultColumn, len(fields))
	for i, fd := range fields {
		typeName := typeNameFromOID(fd.DataTypeOID)
		columns[i] = datasource.ResultColumn{
			Name: fd.Name,
			Type: typeName,
			Kind: datasource.KindOfType(typeName),
		}
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(values) {
				rowMap[col.Name] = normalizeValue(values[i])
			}
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &datasource.QueryResult{Columns: columns, Rows: out, RowCount: len(out)}, nil
}
