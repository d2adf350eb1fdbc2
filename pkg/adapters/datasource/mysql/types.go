package mysql

import "strings"

// typeNames maps MySQL type spellings to the normalized names shared by
// all drivers. Catalog names ("varchar") and the driver's runtime names
// ("VARCHAR") both resolve through the same table.
var typeNames = map[string]string{
	"TINYINT":   "TINYINT",
	"SMALLINT":  "SMALLINT",
	"MEDIUMINT": "INTEGER",
	"INT":       "INTEGER",
	"INTEGER":   "INTEGER",
	"BIGINT":    "BIGINT",

	"DECIMAL":  "NUMERIC",
	"DEC":      "NUMERIC",
	"NUMERIC":  "NUMERIC",
	"FLOAT":    "REAL",
	"DOUBLE":   "DOUBLE PRECISION",
	"REAL":     "DOUBLE PRECISION",
	"BIT":      "BIT",
	"YEAR":     "YEAR",

	"CHAR":       "CHAR",
	"VARCHAR":    "VARCHAR",
	"TINYTEXT":   "TEXT",
	"TEXT":       "TEXT",
	"MEDIUMTEXT": "TEXT",
	"LONGTEXT":   "TEXT",
	"ENUM":       "ENUM",
	"SET":        "SET",

	"BINARY":     "BYTEA",
	"VARBINARY":  "BYTEA",
	"TINYBLOB":   "BLOB",
	"BLOB":       "BLOB",
	"MEDIUMBLOB": "BLOB",
	"LONGBLOB":   "BLOB",

	"DATE":      "DATE",
	"TIME":      "TIME",
	"DATETIME":  "TIMESTAMP",
	"TIMESTAMP": "TIMESTAMP",

	"JSON": "JSON",
}

// mapMySQLType normalizes a MySQL type name. Unknown types (spatial and
// friends) pass through uppercased.
func mapMySQLType(mysqlType string) string {
	t := strings.ToUpper(strings.TrimSpace(mysqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " UNSIGNED")
	if normalized, ok := typeNames[t]; ok {
		return normalized
	}
	return t
}

// binaryTypes keep their []byte payload; everything else a MySQL driver
// hands back as bytes is really text or a decimal rendered as text.
var binaryTypes = map[string]bool{
	"BINARY":     true,
	"VARBINARY":  true,
	"TINYBLOB":   true,
	"BLOB":       true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BIT":        true,
	"GEOMETRY":   true,
}

// convertValue turns driver []byte payloads into strings except for true
// binary columns, which stay raw and JSON-encode as base64.
func convertValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if binaryTypes[strings.ToUpper(dbType)] {
		return b
	}
	return string(b)
}
