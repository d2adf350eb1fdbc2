package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
)

func TestWriteJSON_Status200(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"key": "value"}

	err := WriteJSON(w, http.StatusOK, data)
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	// Status 200 is the default for ResponseRecorder, WriteJSON should not call WriteHeader
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("body[key] = %q, want %q", body["key"], "value")
	}
}

func TestWriteJSON_NonOKStatus(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]int{"count": 5}

	err := WriteJSON(w, http.StatusBadGateway, data)
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()
	data := make(chan int) // channels cannot be JSON-encoded

	err := WriteJSON(w, http.StatusOK, data)
	if err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}

func TestWriteError_StatusByKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"validation", apperrors.New(apperrors.KindValidation, apperrors.StageSQLValidation, "only one statement allowed"), http.StatusBadRequest, "validation_error"},
		{"query", apperrors.New(apperrors.KindQuery, apperrors.StageSQLExecution, "table missing"), http.StatusBadRequest, "query_error"},
		{"connection", apperrors.New(apperrors.KindConnection, apperrors.StageIntrospection, "dial failed"), http.StatusBadGateway, "connection_error"},
		{"ai auth", apperrors.New(apperrors.KindAIAuth, apperrors.StageAIGeneration, "invalid key"), http.StatusBadGateway, "ai_auth_error"},
		{"ai parse", apperrors.New(apperrors.KindAIParse, apperrors.StageAIGeneration, "no statement"), http.StatusBadGateway, "ai_parse_error"},
		{"ai network", apperrors.New(apperrors.KindAINetwork, apperrors.StageAIGeneration, "timeout"), http.StatusGatewayTimeout, "ai_network_error"},
		{"internal", apperrors.New(apperrors.KindInternal, "", "boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteError(w, zap.NewNop(), tt.err)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Success {
				t.Error("success = true, want false")
			}
			if body.ErrorKind != tt.wantKind {
				t.Errorf("error_kind = %q, want %q", body.ErrorKind, tt.wantKind)
			}
			if body.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestWriteError_CarriesStage(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, zap.NewNop(), apperrors.New(apperrors.KindQuery, apperrors.StageSQLExecution, "bad column"))

	resp := w.Result()
	defer resp.Body.Close()

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Stage != apperrors.StageSQLExecution {
		t.Errorf("stage = %q, want %q", body.Stage, apperrors.StageSQLExecution)
	}
}

func TestWriteError_PlainErrorDefaultsToInternal(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, zap.NewNop(), http.ErrBodyNotAllowed)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.ErrorKind != "internal_error" {
		t.Errorf("error_kind = %q, want %q", body.ErrorKind, "internal_error")
	}
}

func TestDecodeJSON_InvalidBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/nl-query", strings.NewReader("{not json"))

	var req NLQueryRequest
	if DecodeJSON(w, r, zap.NewNop(), &req) {
		t.Fatal("DecodeJSON accepted malformed body")
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.ErrorKind != "validation_error" {
		t.Errorf("error_kind = %q, want %q", body.ErrorKind, "validation_error")
	}
}

func TestDecodeJSON_MissingRequiredField(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/nl-query", strings.NewReader(`{"question": "how many users"}`))

	var req NLQueryRequest
	if DecodeJSON(w, r, zap.NewNop(), &req) {
		t.Fatal("DecodeJSON accepted body without config")
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if !strings.Contains(body.Error, "config is required") {
		t.Errorf("error = %q, want mention of missing config", body.Error)
	}
}

func TestDecodeJSON_ValidBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/direct-sql", strings.NewReader(
		`{"config": {"driver": "mysql", "host": "db", "username": "u", "password": "p", "database": "shop"}, "sql": "SELECT 1"}`))

	var req DirectSQLRequest
	if !DecodeJSON(w, r, zap.NewNop(), &req) {
		t.Fatal("DecodeJSON rejected valid body")
	}

	if req.Config == nil || req.Config.Database != "shop" {
		t.Errorf("config not decoded: %+v", req.Config)
	}
	if req.SQL != "SELECT 1" {
		t.Errorf("sql = %q, want %q", req.SQL, "SELECT 1")
	}
}
