package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// typeNamesByOID covers the built-in scalar and array types. Extension and
// user-defined types report UNKNOWN and render as plain text.
var typeNamesByOID = map[uint32]string{
	16:   "BOOL",
	17:   "BYTEA",
	18:   "CHAR",
	19:   "NAME",
	20:   "INT8",
	21:   "INT2",
	23:   "INT4",
	25:   "TEXT",
	26:   "OID",
	114:  "JSON",
	142:  "XML",
	700:  "FLOAT4",
	701:  "FLOAT8",
	790:  "MONEY",
	1042: "BPCHAR",
	1043: "VARCHAR",
	1082: "DATE",
	1083: "TIME",
	1114: "TIMESTAMP",
	1184: "TIMESTAMPTZ",
	1186: "INTERVAL",
	1266: "TIMETZ",
	1700: "NUMERIC",
	2950: "UUID",
	3802: "JSONB",

	199:  "JSON[]",
	1000: "BOOL[]",
	1001: "BYTEA[]",
	1005: "INT2[]",
	1007: "INT4[]",
	1009: "TEXT[]",
	1015: "VARCHAR[]",
	1016: "INT8[]",
	1021: "FLOAT4[]",
	1022: "FLOAT8[]",
	1115: "TIMESTAMP[]",
	1182: "DATE[]",
	1185: "TIMESTAMPTZ[]",
	1231: "NUMERIC[]",
	2951: "UUID[]",
	3807: "JSONB[]",
}

func typeNameFromOID(oid uint32) string {
	if name, ok := typeNamesByOID[oid]; ok {
		return name
	}
	return "UNKNOWN"
}

// catalogTypeNames normalizes information_schema spellings to the canonical
// names the OID table produces, so schema descriptions and query results
// agree on type names.
var catalogTypeNames = map[string]string{
	"character varying":           "VARCHAR",
	"character":                   "CHAR",
	"text":                        "TEXT",
	"smallint":                    "SMALLINT",
	"integer":                     "INTEGER",
	"bigint":                      "BIGINT",
	"real":                        "REAL",
	"double precision":            "DOUBLE PRECISION",
	"numeric":                     "NUMERIC",
	"money":                       "MONEY",
	"boolean":                     "BOOLEAN",
	"date":                        "DATE",
	"time without time zone":      "TIME",
	"time with time zone":         "TIMETZ",
	"timestamp without time zone": "TIMESTAMP",
	"timestamp with time zone":    "TIMESTAMPTZ",
	"interval":                    "INTERVAL",
	"bytea":                       "BYTEA",
	"uuid":                        "UUID",
	"json":                        "JSON",
	"jsonb":                       "JSONB",
	"xml":                         "XML",
}

func mapCatalogType(dataType string) string {
	if name, ok := catalogTypeNames[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return name
	}
	return strings.ToUpper(strings.TrimSpace(dataType))
}

// normalizeValue converts pgx scan types into plain Go values so nothing
// outside this package imports pgtype. time.Time, []byte and the primitive
// types pass through untouched.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		secs := x.Microseconds / 1_000_000
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		return formatInterval(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

func formatInterval(iv pgtype.Interval) string {
	parts := make([]string, 0, 3)
	if iv.Months != 0 {
		parts = append(parts, fmt.Sprintf("%d mon", iv.Months))
	}
	if iv.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d day", iv.Days))
	}
	if secs := float64(iv.Microseconds) / 1e6; secs != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%g sec", secs))
	}
	return strings.Join(parts, " ")
}
