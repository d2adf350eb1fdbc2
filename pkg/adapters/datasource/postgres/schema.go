package postgres

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// reltuples is the planner's estimate (-1 before the first ANALYZE); exact
// counts come from CountRows when a caller needs them.
const tablesQuery = `
SELECT
	t.table_schema,
	t.table_name,
	GREATEST(COALESCE(c.reltuples::bigint, 0), 0) AS row_count
FROM information_schema.tables t
LEFT JOIN pg_namespace n ON n.nspname = t.table_schema
LEFT JOIN pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
WHERE t.table_type = 'BASE TABLE'
  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY t.table_schema, t.table_name`

// pg_index.indisprimary detects primary keys even when an ORM created them
// as unique indexes, and covers composite keys.
const columnsQuery = `
SELECT
	c.table_schema,
	c.table_name,
	c.column_name,
	c.data_type,
	c.is_nullable = 'YES' AS is_nullable,
	COALESCE(pk.is_pk, false) AS is_primary_key,
	COALESCE(c.column_default, '') AS column_default
FROM information_schema.columns c
LEFT JOIN (
	SELECT n.nspname AS table_schema, t.relname AS table_name, a.attname AS column_name, true AS is_pk
	FROM pg_index ix
	JOIN pg_class t ON t.oid = ix.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
	WHERE ix.indisprimary
) pk ON pk.table_schema = c.table_schema AND pk.table_name = c.table_name AND pk.column_name = c.column_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

const foreignKeysQuery = `
SELECT
	tc.constraint_name,
	kcu.table_schema AS source_schema,
	kcu.table_name AS source_table,
	kcu.column_name AS source_column,
	ccu.table_schema AS target_schema,
	ccu.table_name AS target_table,
	ccu.column_name AS target_column
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
	ON tc.constraint_name = ccu.constraint_name
	AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY kcu.table_schema, kcu.table_name, tc.constraint_name, kcu.ordinal_position`

const databasesQuery = `
SELECT datname FROM pg_database
WHERE NOT datistemplate AND datallowconn
ORDER BY datname`

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
		Dialect:  datasource.DriverPostgres,
		Tables:   tables,
	}, nil
}

// displayName drops the schema qualifier for the default schema so the
// common case reads naturally in prompts and generated SQL.
func displayName(schema, table string) string {
	if schema == "public" {
		return table
	}
	return schema + "." + table
}

func (c *Conn) listTables(ctx context.Context) ([]datasource.TableInfo, map[string]*datasource.TableInfo, error) {
	rows, err := c.pool.Query(ctx, tablesQuery)
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
	rows, err := c.pool.Query(ctx, columnsQuery)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schema, tableName, colName, dataType, colDefault string
			nullable, isPrimary                              bool
		)
		if err := rows.Scan(&schema, &tableName, &colName, &dataType, &nullable, &isPrimary, &colDefault); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		table := byKey[schema+"."+tableName]
		if table == nil {
			// Views share information_schema.columns with base tables.
			continue
		}
		table.Columns = append(table.Columns, datasource.ColumnInfo{
			Name:         colName,
			DataType:     mapCatalogType(dataType),
			Nullable:     nullable,
			IsPrimaryKey: isPrimary,
			Default:      colDefault,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate column rows: %w", err)
	}
	return nil
}

func (c *Conn) loadForeignKeys(ctx context.Context, byKey map[string]*datasource.TableInfo) error {
	rows, err := c.pool.Query(ctx, foreignKeysQuery)
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
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", c.tableRef(table.Name), n)
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}

	var out [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read sample values: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = datasource.RenderValue(normalizeValue(v))
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return names, out, nil
}

// ListDatabases names the cluster's connectable, non-template databases.
func (c *Conn) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, databasesQuery)
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
	query := "SELECT COUNT(*) FROM " + c.tableRef(table)
	if err := c.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}
