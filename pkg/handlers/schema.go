package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

type structureResponse struct {
	Success bool `json:"success"`
	*services.DatabaseStructure
}

type relationshipsResponse struct {
	Success bool `json:"success"`
	*services.Graph
}

// SchemaHandler serves database introspection: the full structure view and
// the relationship graph.
type SchemaHandler struct {
	schemas services.SchemaService
	logger  *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schemas services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schemas: schemas, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/db-structure", h.Structure)
	mux.HandleFunc("POST /api/table-relationships", h.Relationships)
}

// Structure handles POST /api/db-structure.
func (h *SchemaHandler) Structure(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	structure, err := h.schemas.Structure(r.Context(), req.Config)
	if err != nil {
		h.logger.Warn("Structure introspection failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, structureResponse{Success: true, DatabaseStructure: structure}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Relationships handles POST /api/table-relationships.
func (h *SchemaHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	graph, err := h.schemas.Relationships(r.Context(), req.Config)
	if err != nil {
		h.logger.Warn("Relationship graph failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, relationshipsResponse{Success: true, Graph: graph}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
