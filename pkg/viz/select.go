package viz

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// PieMaxRows bounds pie slices; larger sets read as noise.
const PieMaxRows = 12

// Select picks a chart for a result. First match wins, and the order is part
// of the contract: line beats bar, bar beats pie.
func Select(result *datasource.QueryResult) *Chart {
	if result == nil || len(result.Rows) == 0 {
		return &Chart{Type: TypeNone}
	}

	var numeric, temporal, categorical []datasource.ResultColumn
	for _, col := range result.Columns {
		switch {
		case col.Kind == datasource.KindNumber:
			numeric = append(numeric, col)
		case col.Kind.Temporal():
			temporal = append(temporal, col)
		default:
			categorical = append(categorical, col)
		}
	}

	switch {
	case len(temporal) >= 1 && len(numeric) >= 1:
		return lineChart(result, temporal[0], numeric)
	case len(categorical) == 1 && len(numeric) == 1:
		return barChart(result, categorical[0], numeric[0])
	case pieEligible(result, numeric, temporal, categorical):
		return pieChart(result, numeric[0], categorical)
	case len(numeric) == 2 && len(result.Columns) == 2:
		return scatterChart(result, numeric[0], numeric[1])
	default:
		return &Chart{Type: TypeTable, Data: result.Rows}
	}
}

// pieEligible wants a single numeric column, nothing temporal, few rows, and
// a non-negative series that sums to something. A single categorical never
// reaches here because bar claims that shape first.
func pieEligible(result *datasource.QueryResult, numeric, temporal, categorical []datasource.ResultColumn) bool {
	if len(numeric) != 1 || len(temporal) != 0 || len(categorical) == 1 {
		return false
	}
	if len(result.Rows) > PieMaxRows {
		return false
	}
	var sum float64
	for _, row := range result.Rows {
		v, _ := toFloat(row[numeric[0].Name])
		if v < 0 {
			return false
		}
		sum += v
	}
	return sum > 0
}

// lineChart plots every numeric column over the first temporal one, rows
// sorted by time ascending.
func lineChart(result *datasource.QueryResult, timeCol datasource.ResultColumn, numeric []datasource.ResultColumn) *Chart {
	order := make([]int, len(result.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return temporalLess(result.Rows[order[a]][timeCol.Name], result.Rows[order[b]][timeCol.Name])
	})

	labels := make([]string, len(order))
	for i, idx := range order {
		labels[i] = datasource.RenderValue(result.Rows[idx][timeCol.Name])
	}

	datasets := make([]Dataset, 0, len(numeric))
	for _, col := range numeric {
		values := make([]float64, len(order))
		for i, idx := range order {
			values[i], _ = toFloat(result.Rows[idx][col.Name])
		}
		datasets = append(datasets, Dataset{Label: col.Name, Values: values})
	}
	return &Chart{Type: TypeLine, Labels: labels, Datasets: datasets}
}

func barChart(result *datasource.QueryResult, catCol, numCol datasource.ResultColumn) *Chart {
	labels := make([]string, len(result.Rows))
	values := make([]float64, len(result.Rows))
	for i, row := range result.Rows {
		labels[i] = datasource.RenderValue(row[catCol.Name])
		values[i], _ = toFloat(row[numCol.Name])
	}
	return &Chart{
		Type:     TypeBar,
		Labels:   labels,
		Datasets: []Dataset{{Label: numCol.Name, Values: values}},
	}
}

// pieChart labels slices from the first categorical column when one exists,
// otherwise by ordinal.
func pieChart(result *datasource.QueryResult, numCol datasource.ResultColumn, categorical []datasource.ResultColumn) *Chart {
	labels := make([]string, len(result.Rows))
	values := make([]float64, len(result.Rows))
	for i, row := range result.Rows {
		if len(categorical) > 0 {
			labels[i] = datasource.RenderValue(row[categorical[0].Name])
		} else {
			labels[i] = fmt.Sprintf("Item %d", i+1)
		}
		values[i], _ = toFloat(row[numCol.Name])
	}
	return &Chart{
		Type:     TypePie,
		Labels:   labels,
		Datasets: []Dataset{{Values: values}},
	}
}

func scatterChart(result *datasource.QueryResult, xCol, yCol datasource.ResultColumn) *Chart {
	points := make([]Point, len(result.Rows))
	for i, row := range result.Rows {
		x, _ := toFloat(row[xCol.Name])
		y, _ := toFloat(row[yCol.Name])
		points[i] = Point{X: x, Y: y}
	}
	return &Chart{
		Type:     TypeScatter,
		Datasets: []Dataset{{Label: xCol.Name + " vs " + yCol.Name, Points: points}},
	}
}

// temporalLess orders temporal cells; NULLs sort last. Rendered forms compare
// correctly for the ISO shapes the drivers emit.
func temporalLess(a, b any) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Before(bt)
	}
	return datasource.RenderValue(a) < datasource.RenderValue(b)
}

// toFloat coerces a cell into a number. Decimal types arrive as strings or
// bytes from some drivers; NULL and unparseable cells chart as zero.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
