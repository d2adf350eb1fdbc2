// Package viz chooses a chart shape for a query result. The selector
// consumes the executor's per-column kind tags and never re-inspects raw
// values to guess types.
package viz

import "time"

// Type names a chart family the client can render.
type Type string

const (
	TypeNone    Type = "none"
	TypeBar     Type = "bar"
	TypeLine    Type = "line"
	TypePie     Type = "pie"
	TypeScatter Type = "scatter"
	TypeTable   Type = "table"
)

// Point is one x/y pair of a scatter series.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is one chart series. Values carries bar/line/pie data; Points
// carries scatter pairs.
type Dataset struct {
	Label  string    `json:"label,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Points []Point   `json:"points,omitempty"`
}

// Chart is a normalized chart description, independent of any rendering
// library. Table charts carry the raw rows instead of series.
type Chart struct {
	Type     Type             `json:"type"`
	Labels   []string         `json:"labels,omitempty"`
	Datasets []Dataset        `json:"datasets,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
}

// DefaultExportTitle labels exports when the caller gives none.
const DefaultExportTitle = "Query Chart"

// Export wraps a chart for client download.
type Export struct {
	Title      string `json:"title"`
	Type       string `json:"type"`
	Chart      *Chart `json:"data"`
	ExportedAt string `json:"exported_at"`
}

// NewExport stamps a chart payload for download.
func NewExport(title, chartType string, chart *Chart, now time.Time) *Export {
	if title == "" {
		title = DefaultExportTitle
	}
	if chartType == "" && chart != nil {
		chartType = string(chart.Type)
	}
	return &Export{
		Title:      title,
		Type:       chartType,
		Chart:      chart,
		ExportedAt: now.Format("2006-01-02 15:04:05"),
	}
}
