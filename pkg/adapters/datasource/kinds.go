package datasource

import "strings"

// Kind buckets a column's driver type for downstream consumers. Chart
// selection and value formatting branch on Kind, never on raw type names.
type Kind string

const (
	KindNumber   Kind = "number"
	KindText     Kind = "text"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindDateTime Kind = "datetime"
	KindBool     Kind = "bool"
	KindOther    Kind = "other"
)

// Temporal reports whether the kind is date, time or datetime.
func (k Kind) Temporal() bool {
	return k == KindDate || k == KindTime || k == KindDateTime
}

// kindByType covers the normalized names the driver packages emit plus the
// common raw spellings of all four dialects.
var kindByType = map[string]Kind{
	"TINYINT": KindNumber, "SMALLINT": KindNumber, "MEDIUMINT": KindNumber,
	"INT": KindNumber, "INTEGER": KindNumber, "BIGINT": KindNumber,
	"INT2": KindNumber, "INT4": KindNumber, "INT8": KindNumber,
	"SERIAL": KindNumber, "BIGSERIAL": KindNumber, "OID": KindNumber,
	"DECIMAL": KindNumber, "NUMERIC": KindNumber, "NUMBER": KindNumber,
	"FLOAT": KindNumber, "FLOAT4": KindNumber, "FLOAT8": KindNumber,
	"DOUBLE": KindNumber, "DOUBLE PRECISION": KindNumber, "REAL": KindNumber,
	"MONEY": KindNumber, "SMALLMONEY": KindNumber, "YEAR": KindNumber,

	"CHAR": KindText, "NCHAR": KindText, "VARCHAR": KindText, "NVARCHAR": KindText,
	"CHARACTER": KindText, "CHARACTER VARYING": KindText, "BPCHAR": KindText,
	"TEXT": KindText, "NTEXT": KindText, "TINYTEXT": KindText,
	"MEDIUMTEXT": KindText, "LONGTEXT": KindText, "CLOB": KindText,
	"STRING": KindText, "ENUM": KindText, "SET": KindText, "NAME": KindText,
	"UUID": KindText, "UNIQUEIDENTIFIER": KindText,

	"DATE": KindDate,

	"TIME": KindTime, "TIMETZ": KindTime,
	"TIME WITHOUT TIME ZONE": KindTime, "TIME WITH TIME ZONE": KindTime,

	"DATETIME": KindDateTime, "DATETIME2": KindDateTime,
	"SMALLDATETIME": KindDateTime, "DATETIMEOFFSET": KindDateTime,
	"TIMESTAMP": KindDateTime, "TIMESTAMPTZ": KindDateTime,
	"TIMESTAMP WITHOUT TIME ZONE": KindDateTime, "TIMESTAMP WITH TIME ZONE": KindDateTime,

	"BOOL": KindBool, "BOOLEAN": KindBool, "BIT": KindBool,

	"INTERVAL": KindOther, "JSON": KindOther, "JSONB": KindOther, "XML": KindOther,
	"BYTEA": KindOther, "BLOB": KindOther, "BINARY": KindOther,
	"VARBINARY": KindOther, "IMAGE": KindOther,
}

// KindOfType normalizes a driver type name to a Kind. It accepts both
// catalog names ("character varying") and runtime names ("NVARCHAR");
// matching is case-insensitive and ignores length suffixes.
func KindOfType(typeName string) Kind {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if strings.HasSuffix(t, "[]") {
		return KindOther
	}
	if k, ok := kindByType[t]; ok {
		return k
	}
	// SQLite declared types are free-form; fall back to affinity-style
	// substring matching.
	switch {
	case strings.Contains(t, "INT"):
		return KindNumber
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return KindText
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "DEC"), strings.Contains(t, "NUM"):
		return KindNumber
	default:
		return KindOther
	}
}
