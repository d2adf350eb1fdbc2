package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

// ConnectionRequest is the body of every endpoint that needs nothing but
// connection details.
type ConnectionRequest struct {
	Config *datasource.ConnectionConfig `json:"config" validate:"required"`
}

type testConnectionResponse struct {
	Success   bool     `json:"success"`
	Databases []string `json:"databases"`
}

// ConnectionHandler verifies credentials before the client commits to a
// database.
type ConnectionHandler struct {
	conns  services.ConnectionService
	logger *zap.Logger
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(conns services.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{conns: conns, logger: logger}
}

// RegisterRoutes registers the connection handler's routes on the given mux.
func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/test-connection", h.TestConnection)
}

// TestConnection handles POST /api/test-connection. The config may omit the
// database; the reachable user databases come back in the response.
func (h *ConnectionHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	databases, err := h.conns.TestConnection(r.Context(), req.Config)
	if err != nil {
		h.logger.Warn("Connection test failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, testConnectionResponse{Success: true, Databases: databases}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
