package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

const tablesQuery = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

// DescribeSchema enumerates the database's tables, columns, foreign keys and
// row samples. SQLite keeps no row count statistics, so counts are exact.
func (c *Conn) DescribeSchema(ctx context.Context, sampleRows int) (*datasource.SchemaDescription, error) {
	names, err := c.listTableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.TableInfo, 0, len(names))
	for _, name := range names {
		table := datasource.TableInfo{Name: name}
		if err := c.loadColumns(ctx, &table); err != nil {
			return nil, err
		}
		if err := c.loadForeignKeys(ctx, &table); err != nil {
			return nil, err
		}
		count, err := c.CountRows(ctx, name)
		if err != nil {
			return nil, err
		}
		table.RowCount = &count
		tables = append(tables, table)
	}

	resolveImplicitTargets(tables)
	datasource.CollectSamples(ctx, tables, sampleRows, c.sampleTable, c.logger)

	return &datasource.SchemaDescription{
		Database: c.cfg.Database,
		Dialect:  datasource.DriverSQLite,
		Tables:   tables,
	}, nil
}

func (c *Conn) listTableNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

func (c *Conn) loadColumns(ctx context.Context, table *datasource.TableInfo) error {
	query := fmt.Sprintf("PRAGMA table_info(%s)", c.QuoteIdentifier(table.Name))
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("describe table %s: %w", table.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declared   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan column row: %w", err)
		}
		table.Columns = append(table.Columns, datasource.ColumnInfo{
			Name:         name,
			DataType:     normalizeType(declared),
			Nullable:     notNull == 0,
			IsPrimaryKey: pk > 0,
			Default:      dflt.String,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate column rows: %w", err)
	}
	return nil
}

func (c *Conn) loadForeignKeys(ctx context.Context, table *datasource.TableInfo) error {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", c.QuoteIdentifier(table.Name))
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("list foreign keys of %s: %w", table.Name, err)
	}
	defer rows.Close()

	type keyRow struct {
		id, seq int
		fk      datasource.ForeignKeyInfo
	}
	var collected []keyRow
	for rows.Next() {
		var id, seq int
		var target, from string
		var to sql.NullString
		var onUpdate, onDelete, matchClause string
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &matchClause); err != nil {
			return fmt.Errorf("scan foreign key row: %w", err)
		}
		collected = append(collected, keyRow{
			id:  id,
			seq: seq,
			fk: datasource.ForeignKeyInfo{
				ConstraintName:   fmt.Sprintf("fk_%s_%d", table.Name, id),
				Column:           from,
				ReferencedTable:  target,
				ReferencedColumn: to.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate foreign key rows: %w", err)
	}

	// The pragma reports keys in reverse declaration order.
	sort.Slice(collected, func(i, j int) bool {
		if collected[i].id != collected[j].id {
			return collected[i].id < collected[j].id
		}
		return collected[i].seq < collected[j].seq
	})
	for _, row := range collected {
		table.ForeignKeys = append(table.ForeignKeys, row.fk)
	}
	return nil
}

// resolveImplicitTargets fills in referenced columns the pragma leaves NULL,
// which happens when a foreign key references the parent's primary key
// implicitly (REFERENCES users instead of REFERENCES users(id)).
func resolveImplicitTargets(tables []datasource.TableInfo) {
	byName := make(map[string]*datasource.TableInfo, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}
	for i := range tables {
		for j := range tables[i].ForeignKeys {
			fk := &tables[i].ForeignKeys[j]
			if fk.ReferencedColumn != "" {
				continue
			}
			target := byName[fk.ReferencedTable]
			if target == nil {
				continue
			}
			if keys := target.PrimaryKeys(); len(keys) > 0 {
				fk.ReferencedColumn = keys[0]
			} else {
				fk.ReferencedColumn = "rowid"
			}
		}
	}
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

// ListDatabases names the attached databases, main first.
func (c *Conn) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			seq        int
			name, file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("scan database row: %w", err)
		}
		if name.String == "temp" {
			continue
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate database rows: %w", err)
	}
	return names, nil
}

// CountRows returns the exact row count of one table.
func (c *Conn) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM " + c.QuoteIdentifier(table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}
