package datasource

import "strings"

// SchemaDescription is the introspected structure of one database.
type SchemaDescription struct {
	Database string      `json:"database"`
	Dialect  string      `json:"dialect"`
	Tables   []TableInfo `json:"tables"`
}

// Table returns the table whose name matches case-insensitively, or nil.
func (s *SchemaDescription) Table(name string) *TableInfo {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns the table names in introspection order.
func (s *SchemaDescription) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i := range s.Tables {
		names[i] = s.Tables[i].Name
	}
	return names
}

// TableInfo is one table with its columns, keys and sampled rows. Name is
// the reference the engine uses in generated SQL; it carries a schema
// qualifier when the table lives outside the dialect's default schema.
type TableInfo struct {
	Name          string           `json:"name"`
	Schema        string           `json:"schema,omitempty"`
	RowCount      *int64           `json:"row_count,omitempty"`
	Columns       []ColumnInfo     `json:"columns"`
	ForeignKeys   []ForeignKeyInfo `json:"foreign_keys,omitempty"`
	SampleColumns []string         `json:"sample_columns,omitempty"`
	SampleRows    [][]string       `json:"sample_rows,omitempty"`
}

// Column returns the column matching name case-insensitively, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKeys returns the primary key column names in column order.
func (t *TableInfo) PrimaryKeys() []string {
	var keys []string
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			keys = append(keys, col.Name)
		}
	}
	return keys
}

// ColumnInfo describes one column of an introspected table. DataType is
// the dialect-normalized name, not the raw driver spelling.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	Default      string `json:"default,omitempty"`
}

// ForeignKeyInfo records one column-to-column reference.
type ForeignKeyInfo struct {
	ConstraintName   string `json:"constraint_name,omitempty"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// ResultColumn is one column of a query result with its normalized type
// and the kind downstream consumers branch on.
type ResultColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind Kind   `json:"kind"`
}

// QueryResult holds bounded rows from a row-returning statement.
type QueryResult struct {
	Columns   []ResultColumn   `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// ColumnNames returns the result column names in order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i := range r.Columns {
		names[i] = r.Columns[i].Name
	}
	return names
}

// ExecResult reports the outcome of Execute. Statements that return rows
// (SHOW, EXPLAIN, INSERT ... RETURNING) fill Columns and Rows; plain DML
// fills RowsAffected.
type ExecResult struct {
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count"`
	RowsAffected int64            `json:"rows_affected"`
}
