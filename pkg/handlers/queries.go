package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/prompts"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

// HistoryExchange is one prior question and its generated SQL, carried by
// the client between requests.
type HistoryExchange struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// NLQueryRequest is the POST /api/nl-query body.
type NLQueryRequest struct {
	Config   *datasource.ConnectionConfig `json:"config" validate:"required"`
	Question string                       `json:"question" validate:"required"`
	History  []HistoryExchange            `json:"history,omitempty"`
}

// DirectSQLRequest is the POST /api/direct-sql body, shared by
// visualize-query.
type DirectSQLRequest struct {
	Config *datasource.ConnectionConfig `json:"config" validate:"required"`
	SQL    string                       `json:"sql" validate:"required"`
}

type nlQueryResponse struct {
	Success bool `json:"success"`
	*services.NLQueryResult
}

type directSQLResponse struct {
	Success bool `json:"success"`
	*services.DirectSQLResult
}

type visualizeResponse struct {
	Success bool       `json:"success"`
	Chart   *viz.Chart `json:"chart"`
}

// QueryHandler serves the question-to-answer pipeline and its direct-SQL
// variants.
type QueryHandler struct {
	queries services.QueryService
	logger  *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queries services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{queries: queries, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/nl-query", h.NLQuery)
	mux.HandleFunc("POST /api/direct-sql", h.DirectSQL)
	mux.HandleFunc("POST /api/visualize-query", h.VisualizeQuery)
	mux.HandleFunc("POST /api/stream-query", h.StreamQuery)
}

// NLQuery handles POST /api/nl-query.
func (h *QueryHandler) NLQuery(w http.ResponseWriter, r *http.Request) {
	var req NLQueryRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	result, err := h.queries.NLQuery(r.Context(), &services.NLQueryRequest{
		Config:   req.Config,
		Question: req.Question,
		History:  toExchanges(req.History),
	})
	if err != nil {
		h.logger.Warn("NL query failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.String("stage", apperrors.StageOf(err)),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, nlQueryResponse{Success: true, NLQueryResult: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DirectSQL handles POST /api/direct-sql.
func (h *QueryHandler) DirectSQL(w http.ResponseWriter, r *http.Request) {
	var req DirectSQLRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	result, err := h.queries.DirectSQL(r.Context(), req.Config, req.SQL)
	if err != nil {
		h.logger.Warn("Direct SQL failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, directSQLResponse{Success: true, DirectSQLResult: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// VisualizeQuery handles POST /api/visualize-query.
func (h *QueryHandler) VisualizeQuery(w http.ResponseWriter, r *http.Request) {
	var req DirectSQLRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	chart, err := h.queries.VisualizeQuery(r.Context(), req.Config, req.SQL)
	if err != nil {
		h.logger.Warn("Visualize query failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, visualizeResponse{Success: true, Chart: chart}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// StreamQuery handles POST /api/stream-query. The response is NDJSON: one
// event object per line, flushed as produced.
func (h *QueryHandler) StreamQuery(w http.ResponseWriter, r *http.Request) {
	var req NLQueryRequest
	if !DecodeJSON(w, r, h.logger, &req) {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	// Proxies must not buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)
	sink := func(event *services.StreamEvent) error {
		if err := encoder.Encode(event); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err := h.queries.StreamNLQuery(r.Context(), &services.NLQueryRequest{
		Config:   req.Config,
		Question: req.Question,
		History:  toExchanges(req.History),
	}, sink)
	if err != nil {
		// The error event is already on the wire; nothing more to send.
		h.logger.Warn("Stream query ended with error",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
	}
}

func toExchanges(history []HistoryExchange) []prompts.Exchange {
	if len(history) == 0 {
		return nil
	}
	exchanges := make([]prompts.Exchange, len(history))
	for i, h := range history {
		exchanges[i] = prompts.Exchange{Question: h.Question, SQL: h.SQL}
	}
	return exchanges
}
