package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	sqlutil "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// wrapWithLimit bounds a row-returning statement with a derived table. An
// inner ORDER BY needs its own TOP or OFFSET to be legal inside a derived
// table; the prompt instructions steer generated SQL that way.
func wrapWithLimit(sqlText string, limit int) string {
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit, sqlText)
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
// reports affected rows. The protocol offers no single call that yields
// both, and running the statement twice is not an option for DML.
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
// $1, $2 placeholders become named @p1, @p2 parameters, which is the only
// form the driver binds.
func (c *Conn) ExecuteWithParams(ctx context.Context, sqlText string, params []any) (*datasource.ExecResult, error) {
	args := make([]any, len(params))
	for i, v := range params {
		args[i] = sql.Named(fmt.Sprintf("p%d", i+1), v)
	}

	res, err := c.db.ExecContext(ctx, convertParams(sqlText), args...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read rows affected: %w", err)
	}
	return &datasource.ExecResult{RowsAffected: affected}, nil
}

// Page reads one page of a table. OFFSET/FETCH requires an ORDER BY, so an
// arbitrary stable one is supplied.
func (c *Conn) Page(ctx context.Context, table string, limit, offset int) (*datasource.QueryResult, error) {
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s ORDER BY (SELECT NULL) OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		c.tableRef(table), offset, limit,
	)
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

// Explain returns the estimated plan as text lines. SHOWPLAN is session
// state, so the whole exchange is pinned to one connection and the flag is
// always reset before the connection returns to the pool.
func (c *Conn) Explain(ctx context.Context, sqlText string) ([]string, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_TEXT ON"); err != nil {
		return nil, fmt.Errorf("enable showplan: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SET SHOWPLAN_TEXT OFF")
	}()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	// The plan arrives as one StmtText column, split across result sets.
	var lines []string
	for {
		for rows.Next() {
			var line sql.NullString
			if err := rows.Scan(&line); err != nil {
				return nil, fmt.Errorf("scan plan line: %w", err)
			}
			if text := strings.TrimSpace(line.String); line.Valid && text != "" {
				lines = append(lines, text)
			}
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate plan lines: %w", err)
		}
		if !rows.NextResultSet() {
			break
		}
	}
	return lines, nil
}

// collectRows drains a result set into the shared result shape.
func collectRows(rows *sql.Rows) (*datasource.QueryResult, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	columns := make([]datasource.ResultColumn, len(names))
	for i, name := range names {
		normalized := mapSQLServerType(types[i].DatabaseTypeName())
		columns[i] = datasource.ResultColumn{
			Name: name,
			Type: normalized,
			Kind: datasource.KindOfType(normalized),
		}
	}

	out := make([]map[string]any, 0)
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
			rowMap[name] = convertValue(values[i], types[i].DatabaseTypeName())
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &datasource.QueryResult{Columns: columns, Rows: out, RowCount: len(out)}, nil
}

// collectSample renders every row as display strings for prompt samples.
func collectSample(rows *sql.Rows) ([]string, [][]string, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("read column types: %w", err)
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
			cells[i] = datasource.RenderValue(convertValue(values[i], types[i].DatabaseTypeName()))
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return names, out, nil
}

var paramPattern = regexp.MustCompile(`\$(\d+)`)

// convertParams rewrites $1, $2, ... placeholders to named @p1, @p2, ...
func convertParams(sqlText string) string {
	return paramPattern.ReplaceAllString(sqlText, "@p$1")
}
