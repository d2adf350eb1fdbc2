package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

type analyzeResponse struct {
	Success bool `json:"success"`
	*services.Analysis
}

// AnalyzeHandler serves execution-plan analysis for read statements.
type AnalyzeHandler struct {
	analyzer services.AnalyzeService
	logger   *zap.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(analyzer services.AnalyzeService, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, logger: logger}
}

// RegisterRoutes registers the analyze handler's routes on the given mux.
func (h *AnalyzeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze-query", h.AnalyzeQuery)
}

// AnalyzeQuery handles POST /api/analyze-query.
func (h *AnalyzeHandler) AnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	var req DirectSQLRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.Config, req.SQL)
	if err != nil {
		h.logger.Warn("Query analysis failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, analyzeResponse{Success: true, Analysis: analysis}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
