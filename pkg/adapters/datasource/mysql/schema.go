package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// TABLE_ROWS is the storage engine's estimate; exact counts come from
// CountRows when a caller needs them.
const tablesQuery = `
SELECT TABLE_NAME, COALESCE(TABLE_ROWS, 0)
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

const columnsQuery = `
SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY, COALESCE(COLUMN_DEFAULT, '')
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME, ORDINAL_POSITION`

const foreignKeysQuery = `
SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`

// DescribeSchema enumerates the connected database's tables, columns,
// foreign keys and row samples.
func (c *Conn) DescribeSchema(ctx context.Context, sampleRows int) (*datasource.SchemaDescription, error) {
	tables, err := c.listTables(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.loadColumns(ctx, tables); err != nil {
		return nil, err
	}
	if err := c.loadForeignKeys(ctx, tables); err != nil {
		return nil, err
	}
	datasource.CollectSamples(ctx, tables, sampleRows, c.sampleTable, c.logger)

	return &datasource.SchemaDescription{
		Database: c.cfg.Database,
		Dialect:  datasource.DriverMySQL,
		Tables:   tables,
	}, nil
}

func (c *Conn) listTables(ctx context.Context) ([]datasource.TableInfo, error) {
	rows, err := c.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		var (
			name     string
			rowCount int64
		)
		if err := rows.Scan(&name, &rowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		count := rowCount
		tables = append(tables, datasource.TableInfo{Name: name, RowCount: &count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return tables, nil
}

func (c *Conn) loadColumns(ctx context.Context, tables []datasource.TableInfo) error {
	rows, err := c.db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	byName := tablesByName(tables)
	for rows.Next() {
		var tableName, colName, dataType, isNullable, columnKey, colDefault string
		if err := rows.Scan(&tableName, &colName, &dataType, &isNullable, &columnKey, &colDefault); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		table := byName[tableName]
		if table == nil {
			// Views share information_schema.COLUMNS with base tables.
			continue
		}
		table.Columns = append(table.Columns, datasource.ColumnInfo{
			Name:         colName,
			DataType:     mapMySQLType(dataType),
			Nullable:     strings.EqualFold(isNullable, "YES"),
			IsPrimaryKey: columnKey == "PRI",
			Default:      colDefault,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate column rows: %w", err)
	}
	return nil
}

func (c *Conn) loadForeignKeys(ctx context.Context, tables []datasource.TableInfo) error {
	rows, err := c.db.QueryContext(ctx, foreignKeysQuery)
	if err != nil {
		return fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	byName := tablesByName(tables)
	for rows.Next() {
		var tableName, constraint, column, refTable, refColumn string
		if err := rows.Scan(&tableName, &constraint, &column, &refTable, &refColumn); err != nil {
			return fmt.Errorf("scan foreign key row: %w", err)
		}
		table := byName[tableName]
		if table == nil {
			continue
		}
		table.ForeignKeys = append(table.ForeignKeys, datasource.ForeignKeyInfo{
			ConstraintName:   constraint,
			Column:           column,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate foreign key rows: %w", err)
	}
	return nil
}

func (c *Conn) sampleTable(ctx context.Context, table *datasource.TableInfo, n int) ([]string, [][]string, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", c.QuoteIdentifier(table.Name), n)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return collectSample(rows)
}

// ListDatabases names the server's user databases.
func (c *Conn) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		if systemSchemas[strings.ToLower(name)] {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate database names: %w", err)
	}
	return names, nil
}

// CountRows returns the exact row count of one table.
func (c *Conn) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.QuoteIdentifier(table))
	var count int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}

// systemSchemas are excluded from ListDatabases.
var systemSchemas = map[string]bool{
	"information_schema": true,
	"mysql":              true,
	"performance_schema": true,
	"sys":                true,
}

func tablesByName(tables []datasource.TableInfo) map[string]*datasource.TableInfo {
	byName := make(map[string]*datasource.TableInfo, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}
	return byName
}
