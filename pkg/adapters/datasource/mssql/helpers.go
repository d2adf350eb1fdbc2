package mssql

import (
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"
)

// parseSchemaTable splits a possibly schema-qualified table reference,
// defaulting the schema to dbo.
func parseSchemaTable(table string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok {
		return s, n
	}
	return "dbo", table
}

// quoteName brackets one identifier, escaping closing brackets.
func quoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// typeNames maps SQL Server spellings to the canonical names shared across
// dialects. Unlisted types pass through uppercased.
var typeNames = map[string]string{
	"INT":     "INTEGER",
	"DEC":     "NUMERIC",
	"DECIMAL": "NUMERIC",
}

// mapSQLServerType normalizes a type name from sys.types or the driver's
// column metadata. Length suffixes are dropped.
func mapSQLServerType(sqlServerType string) string {
	t := strings.ToUpper(strings.TrimSpace(sqlServerType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if normalized, ok := typeNames[t]; ok {
		return normalized
	}
	return t
}

// textualTypes are the types the driver scans as []byte but that display as
// text. DECIMAL and MONEY arrive as []byte to avoid losing precision.
var textualTypes = map[string]bool{
	"CHAR":       true,
	"NCHAR":      true,
	"VARCHAR":    true,
	"NVARCHAR":   true,
	"TEXT":       true,
	"NTEXT":      true,
	"XML":        true,
	"NUMERIC":    true,
	"MONEY":      true,
	"SMALLMONEY": true,
}

// convertValue makes driver values printable. UNIQUEIDENTIFIER bytes arrive
// in the wire's mixed-endian order and need the driver's own swizzle to read
// back as the canonical GUID string.
func convertValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	normalized := mapSQLServerType(dbType)
	if normalized == "UNIQUEIDENTIFIER" {
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
		return v
	}
	if textualTypes[normalized] {
		return string(b)
	}
	return v
}
