package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// ExportChartRequest is the POST /api/export-chart body. The chart payload
// comes back stamped for download; no database work happens here.
type ExportChartRequest struct {
	Title string     `json:"title,omitempty"`
	Type  string     `json:"type,omitempty"`
	Chart *viz.Chart `json:"chart" validate:"required"`
}

type exportChartResponse struct {
	Success bool        `json:"success"`
	Export  *viz.Export `json:"export"`
}

// ChartHandler packages charts for client-side download.
type ChartHandler struct {
	logger *zap.Logger
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(logger *zap.Logger) *ChartHandler {
	return &ChartHandler{logger: logger}
}

// RegisterRoutes registers the chart handler's routes on the given mux.
func (h *ChartHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/export-chart", h.ExportChart)
}

// ExportChart handles POST /api/export-chart.
func (h *ChartHandler) ExportChart(w http.ResponseWriter, r *http.Request) {
	var req ExportChartRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	export := viz.NewExport(req.Title, req.Type, req.Chart, time.Now())
	if err := WriteJSON(w, http.StatusOK, exportChartResponse{Success: true, Export: export}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
