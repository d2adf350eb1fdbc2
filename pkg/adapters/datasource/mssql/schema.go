package mssql

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// sys.partitions carries the storage engine's row counts; index 0 is a heap,
// index 1 a clustered index. Exact counts come from CountRows.
const tablesQuery = `
SELECT s.name AS schema_name, t.name AS table_name, COALESCE(SUM(p.rows), 0) AS row_count
FROM sys.tables t
JOIN sys.schemas s ON t.schema_id = s.schema_id
LEFT JOIN sys.partitions p ON t.object_id = p.object_id AND p.index_id IN (0, 1)
GROUP BY s.name, t.name
ORDER BY s.name, t.name`

const columnsQuery = `
SELECT
	s.name AS schema_name,
	t.name AS table_name,
	c.name AS column_name,
	ty.name AS type_name,
	c.is_nullable,
	CASE WHEN pk.column_id IS NULL THEN 0 ELSE 1 END AS is_primary_key,
	COALESCE(dc.definition, '') AS default_definition
FROM sys.columns c
JOIN sys.tables t ON c.object_id = t.object_id
JOIN sys.schemas s ON t.schema_id = s.schema_id
JOIN sys.types ty ON c.user_type_id = ty.user_type_id
LEFT JOIN (
	SELECT ic.object_id, ic.column_id
	FROM sys.index_columns ic
	JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
	WHERE i.is_primary_key = 1
) pk ON pk.object_id = c.object_id AND pk.column_id = c.column_id
LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
ORDER BY s.name, t.name, c.column_id`

const foreignKeysQuery = `
SELECT
	fk.name AS constraint_name,
	ss.name AS source_schema,
	st.name AS source_table,
	sc.name AS source_column,
	ts.name AS target_schema,
	tt.name AS target_table,
	tc.name AS target_column
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
JOIN sys.tables st ON fkc.parent_object_id = st.object_id
JOIN sys.schemas ss ON st.schema_id = ss.schema_id
JOIN sys.columns sc ON fkc.parent_object_id = sc.object_id AND fkc.parent_column_id = sc.column_id
JOIN sys.tables tt ON fkc.referenced_object_id = tt.object_id
JOIN sys.schemas ts ON tt.schema_id = ts.schema_id
JOIN sys.columns tc ON fkc.referenced_object_id = tc.object_id AND fkc.referenced_column_id = tc.column_id
ORDER BY ss.name, st.name, fk.name, fkc.constraint_column_id`

// DescribeSchema enumerates the connected database's tables, columns,
// foreign keys and row samples across all user schemas.
func (c *Conn) DescribeSchema(ctx context.Context, sampleRows int) (*datasource.SchemaDescription, error) {
	tables, byKey, err := c.listTables(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.loadColumns(ctx, byKey); err != nil {
		return nil, err
	}
	if err := c.loadForeignKeys(ctx, byKey); err != nil {
		return nil, err
	}
	datasource.CollectSamples(ctx, tables, sampleRows, c.sampleTable, c.logger)

	return &datasource.SchemaDescription{
		Database: c.cfg.Database,
		Dialect:  datasource.DriverSQLServer,
		Tables:   tables,
	}, nil
}

// displayName drops the schema qualifier for the default schema so the
// common case reads naturally in prompts and generated SQL.
func displayName(schema, table string) string {
	if schema == "dbo" {
		return table
	}
	return schema + "." + table
}

func (c *Conn) listTables(ctx context.Context) ([]datasource.TableInfo, map[string]*datasource.TableInfo, error) {
	rows, err := c.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var (
		tables []datasource.TableInfo
		keys   []string
	)
	for rows.Next() {
		var (
			schema, name string
			rowCount     int64
		)
		if err := rows.Scan(&schema, &name, &rowCount); err != nil {
			return nil, nil, fmt.Errorf("scan table row: %w", err)
		}
		count := rowCount
		keys = append(keys, schema+"."+name)
		tables = append(tables, datasource.TableInfo{
			Name:     displayName(schema, name),
			Schema:   schema,
			RowCount: &count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate table rows: %w", err)
	}

	// Keyed by raw schema.name, matching how the column and key queries
	// report tables; the display name may differ for the default schema.
	byKey := make(map[string]*datasource.TableInfo, len(tables))
	for i := range tables {
		byKey[keys[i]] = &tables[i]
	}
	return tables, byKey, nil
}

func (c *Conn) loadColumns(ctx context.Context, byKey map[string]*datasource.TableInfo) error {
	rows, err := c.db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schema, tableName, colName, typeName, colDefault string
			nullable                                         bool
			isPrimary                                        int
		)
		if err := rows.Scan(&schema, &tableName, &colName, &typeName, &nullable, &isPrimary, &colDefault); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		table := byKey[schema+"."+tableName]
		if table == nil {
			continue
		}
		table.Columns = append(table.Columns, datasource.ColumnInfo{
			Name:         colName,
			DataType:     mapSQLServerType(typeName),
			Nullable:     nullable,
			IsPrimaryKey: isPrimary == 1,
			Default:      colDefault,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate column rows: %w", err)
	}
	return nil
}

func (c *Conn) loadForeignKeys(ctx context.Context, byKey map[string]*datasource.TableInfo) error {
	rows, err := c.db.QueryContext(ctx, foreignKeysQuery)
	if err != nil {
		return fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var constraint, srcSchema, srcTable, srcColumn, tgtSchema, tgtTable, tgtColumn string
		if err := rows.Scan(&constraint, &srcSchema, &srcTable, &srcColumn, &tgtSchema, &tgtTable, &tgtColumn); err != nil {
			return fmt.Errorf("scan foreign key row: %w", err)
		}
		table := byKey[srcSchema+"."+srcTable]
		if table == nil {
			continue
		}
		table.ForeignKeys = append(table.ForeignKeys, datasource.ForeignKeyInfo{
			ConstraintName:   constraint,
			Column:           srcColumn,
			ReferencedTable:  displayName(tgtSchema, tgtTable),
			ReferencedColumn: tgtColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate foreign key rows: %w", err)
	}
	return nil
}

func (c *Conn) sampleTable(ctx context.Context, table *datasource.TableInfo, n int) ([]string, [][]string, error) {
	query := fmt.Sprintf("SELECT TOP (%d) * FROM %s", n, c.tableRef(table.Name))
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return collectSample(rows)
}

// ListDatabases names the server's user databases. The first four database
// ids are reserved for master, tempdb, model and msdb.
func (c *Conn) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM sys.databases WHERE database_id > 4 ORDER BY name")
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
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate database names: %w", err)
	}
	return names, nil
}

// CountRows returns the exact row count of one table.
func (c *Conn) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	query := "SELECT COUNT_BIG(*) FROM " + c.tableRef(table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}
