package datasource

import (
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// RenderValue formats one cell for display in prompts and table samples.
// The output is stable across drivers so the same row renders identically
// regardless of dialect.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("0x%x", val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat drops the fractional part of whole numbers so counts read
// as "42" rather than "42.000000".
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// RenderRow formats every cell of a result row in column order.
func RenderRow(columns []string, row map[string]any) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = RenderValue(row[col])
	}
	return cells
}
