package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
)

// TableDataRequest is the POST /api/table-data body.
type TableDataRequest struct {
	Config *datasource.ConnectionConfig `json:"config" validate:"required"`
	Table  string                       `json:"table" validate:"required"`
	Page   int                          `json:"page,omitempty"`
	Limit  int                          `json:"limit,omitempty"`
}

// UpdateRowRequest is the POST /api/update-row body. PrimaryValue has no
// required tag: zero and empty string are legitimate key values.
type UpdateRowRequest struct {
	Config       *datasource.ConnectionConfig `json:"config" validate:"required"`
	Table        string                       `json:"table" validate:"required"`
	PrimaryKey   string                       `json:"primary_key" validate:"required"`
	PrimaryValue any                          `json:"primary_value"`
	Row          map[string]any               `json:"row" validate:"required"`
}

type tableDataResponse struct {
	Success bool `json:"success"`
	*services.TablePage
}

type updateRowResponse struct {
	Success      bool  `json:"success"`
	AffectedRows int64 `json:"affected_rows"`
}

// TableHandler serves row browsing and single-row edits.
type TableHandler struct {
	tables services.TableService
	logger *zap.Logger
}

// NewTableHandler creates a new table handler.
func NewTableHandler(tables services.TableService, logger *zap.Logger) *TableHandler {
	return &TableHandler{tables: tables, logger: logger}
}

// RegisterRoutes registers the table handler's routes on the given mux.
func (h *TableHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/table-data", h.TableData)
	mux.HandleFunc("POST /api/update-row", h.UpdateRow)
}

// TableData handles POST /api/table-data.
func (h *TableHandler) TableData(w http.ResponseWriter, r *http.Request) {
	var req TableDataRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	page, err := h.tables.Page(r.Context(), req.Config, req.Table, req.Page, req.Limit)
	if err != nil {
		h.logger.Warn("Table page failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.String("table", req.Table),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, tableDataResponse{Success: true, TablePage: page}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateRow handles POST /api/update-row.
func (h *TableHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req UpdateRowRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	affected, err := h.tables.UpdateRow(r.Context(), req.Config, &services.UpdateRowRequest{
		Table:        req.Table,
		PrimaryKey:   req.PrimaryKey,
		PrimaryValue: req.PrimaryValue,
		Row:          req.Row,
	})
	if err != nil {
		h.logger.Warn("Row update failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.String("table", req.Table),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, updateRowResponse{Success: true, AffectedRows: affected}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
