package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/llm"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthHandler answers liveness checks and AI provider probes.
type HealthHandler struct {
	version string
	gateway *llm.Gateway
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, gateway *llm.Gateway, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{version: version, gateway: gateway, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/ai-health", h.AIHealth)
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AIHealth handles POST /api/ai-health. The probe result always travels
// with status 200; failures are reported in the body so clients can show
// the reason instead of a bare error page.
func (h *HealthHandler) AIHealth(w http.ResponseWriter, r *http.Request) {
	probe := h.gateway.Probe(r.Context())
	if !probe.Success {
		h.logger.Warn("AI provider probe failed",
			zap.String("error_type", string(probe.ErrorType)),
			zap.String("message", probe.Message))
	}
	if err := WriteJSON(w, http.StatusOK, probe); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
