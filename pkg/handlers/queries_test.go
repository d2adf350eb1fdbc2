package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/services"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

const testConfigJSON = `{"driver": "mysql", "host": "db", "username": "u", "password": "p", "database": "shop"}`

func TestNLQuery(t *testing.T) {
	mock := &mockQueryService{
		nlResult: &services.NLQueryResult{
			SQL:         "SELECT name FROM users",
			Explanation: "Listing user names.",
			Answer:      "There are two users.",
			Rows:        []map[string]any{{"name": "ada"}, {"name": "linus"}},
			RowCount:    2,
		},
	}
	h := NewQueryHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "question": "who are the users?", "history": [{"question": "how many?", "sql": "SELECT COUNT(*) FROM users"}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/nl-query", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.NLQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	if got["success"] != true {
		t.Error("success = false, want true")
	}
	if got["sql"] != "SELECT name FROM users" {
		t.Errorf("sql = %q, want the generated statement", got["sql"])
	}
	if got["row_count"] != float64(2) {
		t.Errorf("row_count = %v, want 2", got["row_count"])
	}
	if got["answer"] != "There are two users." {
		t.Errorf("answer = %v, want the explanation text", got["answer"])
	}

	if mock.gotNLReq == nil {
		t.Fatal("service was not called")
	}
	if mock.gotNLReq.Question != "who are the users?" {
		t.Errorf("question = %q, want the request question", mock.gotNLReq.Question)
	}
	if len(mock.gotNLReq.History) != 1 || mock.gotNLReq.History[0].SQL != "SELECT COUNT(*) FROM users" {
		t.Errorf("history not converted: %+v", mock.gotNLReq.History)
	}
	if mock.gotNLReq.Config == nil || mock.gotNLReq.Config.Database != "shop" {
		t.Errorf("config not forwarded: %+v", mock.gotNLReq.Config)
	}
}

func TestNLQuery_MissingQuestion(t *testing.T) {
	mock := &mockQueryService{}
	h := NewQueryHandler(mock, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/nl-query", strings.NewReader(`{"config": `+testConfigJSON+`}`))
	w := httptest.NewRecorder()

	h.NLQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if mock.gotNLReq != nil {
		t.Error("service must not run for an invalid request")
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if !strings.Contains(body.Error, "question is required") {
		t.Errorf("error = %q, want mention of missing question", body.Error)
	}
}

func TestNLQuery_PipelineErrorEnvelope(t *testing.T) {
	mock := &mockQueryService{
		err: apperrors.New(apperrors.KindAINetwork, apperrors.StageAIGeneration, "provider timeout"),
	}
	h := NewQueryHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "question": "who are the users?"}`
	r := httptest.NewRequest(http.MethodPost, "/api/nl-query", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.NLQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusGatewayTimeout)
	}

	var got errorBody
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if got.ErrorKind != "ai_network_error" {
		t.Errorf("error_kind = %q, want %q", got.ErrorKind, "ai_network_error")
	}
	if got.Stage != apperrors.StageAIGeneration {
		t.Errorf("stage = %q, want %q", got.Stage, apperrors.StageAIGeneration)
	}
}

func TestDirectSQL(t *testing.T) {
	affected := int64(3)
	mock := &mockQueryService{
		directResult: &services.DirectSQLResult{AffectedRows: &affected},
	}
	h := NewQueryHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "sql": "UPDATE users SET active = 1 WHERE id = 7"}`
	r := httptest.NewRequest(http.MethodPost, "/api/direct-sql", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.DirectSQL(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if got["success"] != true {
		t.Error("success = false, want true")
	}
	if got["affected_rows"] != float64(3) {
		t.Errorf("affected_rows = %v, want 3", got["affected_rows"])
	}
	if mock.gotSQL != "UPDATE users SET active = 1 WHERE id = 7" {
		t.Errorf("service got sql = %q", mock.gotSQL)
	}
}

func TestVisualizeQuery(t *testing.T) {
	mock := &mockQueryService{
		chart: &viz.Chart{
			Type:   viz.TypeBar,
			Labels: []string{"north", "south"},
		},
	}
	h := NewQueryHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "sql": "SELECT region, SUM(total) FROM orders GROUP BY region"}`
	r := httptest.NewRequest(http.MethodPost, "/api/visualize-query", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.VisualizeQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got struct {
		Success bool       `json:"success"`
		Chart   *viz.Chart `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if !got.Success {
		t.Error("success = false, want true")
	}
	if got.Chart == nil || got.Chart.Type != viz.TypeBar {
		t.Errorf("chart = %+v, want a bar chart", got.Chart)
	}
	if len(got.Chart.Labels) != 2 || got.Chart.Labels[0] != "north" {
		t.Errorf("labels = %v", got.Chart.Labels)
	}
}

func TestStreamQuery(t *testing.T) {
	mock := &mockQueryService{
		events: []*services.StreamEvent{
			{Type: services.EventStatus, Data: services.PhasePreparing},
			{Type: services.EventSQL, Data: "SELECT 1"},
			{Type: services.EventResults, Data: &services.DirectSQLResult{RowCount: 1}},
			{Type: services.EventDone},
		},
	}
	h := NewQueryHandler(mock, zap.NewNop())

	body := `{"config": ` + testConfigJSON + `, "question": "anything?"}`
	r := httptest.NewRequest(http.MethodPost, "/api/stream-query", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.StreamQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/x-ndjson")
	}

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event services.StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("line %q is not a JSON event: %v", line, err)
		}
		types = append(types, event.Type)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning stream: %v", err)
	}

	want := []string{services.EventStatus, services.EventSQL, services.EventResults, services.EventDone}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestStreamQuery_InvalidBodyStaysJSON(t *testing.T) {
	mock := &mockQueryService{}
	h := NewQueryHandler(mock, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/stream-query", strings.NewReader(`{"question": "no config"}`))
	w := httptest.NewRecorder()

	h.StreamQuery(w, r)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want plain JSON before the stream starts", ct)
	}
	if mock.gotNLReq != nil {
		t.Error("service must not run for an invalid request")
	}
}

func TestQueryRoutes_MethodPatterns(t *testing.T) {
	mux := http.NewServeMux()
	NewQueryHandler(&mockQueryService{}, zap.NewNop()).RegisterRoutes(mux)

	r := httptest.NewRequest(http.MethodGet, "/api/nl-query", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/nl-query status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}
