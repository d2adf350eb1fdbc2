package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	sqlpkg "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

func TestAnalyzeHandler_AnalyzeQuery(t *testing.T) {
	mock := &mockAnalyzeService{
		analysis: &services.Analysis{
			Plan:       []string{"Seq Scan on users  (cost=0.00..15.00 rows=500 width=72)"},
			Hints:      []string{"Full table scan detected - consider adding an index if this table is large"},
			Complexity: sqlpkg.Complexity{Level: sqlpkg.ComplexitySimple},
		},
	}
	handler := NewAnalyzeHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "sql": "SELECT * FROM users"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-query", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.AnalyzeQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if got["success"] != true {
		t.Error("success = false, want true")
	}
	plan, ok := got["plan"].([]any)
	if !ok || len(plan) != 1 {
		t.Errorf("plan = %v, want one line", got["plan"])
	}
	hints, ok := got["hints"].([]any)
	if !ok || len(hints) != 1 {
		t.Errorf("hints = %v, want one hint", got["hints"])
	}
	complexity, ok := got["complexity"].(map[string]any)
	if !ok || complexity["level"] != sqlpkg.ComplexitySimple {
		t.Errorf("complexity = %v, want level %q", got["complexity"], sqlpkg.ComplexitySimple)
	}

	if mock.gotSQL != "SELECT * FROM users" {
		t.Errorf("service got sql = %q", mock.gotSQL)
	}
}

func TestAnalyzeHandler_MultipleStatements(t *testing.T) {
	mock := &mockAnalyzeService{
		err: apperrors.Wrap(apperrors.KindValidation, apperrors.StageSQLValidation, apperrors.ErrMultipleStatements),
	}
	handler := NewAnalyzeHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "sql": "SELECT 1; DROP TABLE users;"}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-query", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.AnalyzeQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var got errorBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ErrorKind != "validation_error" {
		t.Errorf("error_kind = %q, want %q", got.ErrorKind, "validation_error")
	}
}

func TestAnalyzeHandler_MissingSQL(t *testing.T) {
	mock := &mockAnalyzeService{}
	handler := NewAnalyzeHandler(mock, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-query", strings.NewReader(`{"config": `+testConfigJSON+`}`))
	rec := httptest.NewRecorder()

	handler.AnalyzeQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if mock.gotSQL != "" {
		t.Error("service must not run without sql")
	}
}
