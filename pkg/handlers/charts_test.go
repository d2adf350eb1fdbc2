package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/viz"
)

func TestChartHandler_ExportChart(t *testing.T) {
	handler := NewChartHandler(zap.NewNop())

	body := `{"title": "Sales by Region", "type": "bar", "chart": {"type": "bar", "labels": ["north", "south"]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/export-chart", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ExportChart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got exportChartResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.Success {
		t.Error("success = false, want true")
	}
	if got.Export == nil {
		t.Fatal("export missing")
	}
	if got.Export.Title != "Sales by Region" {
		t.Errorf("title = %q, want %q", got.Export.Title, "Sales by Region")
	}
	if got.Export.ExportedAt == "" {
		t.Error("exported_at is empty")
	}
	if got.Export.Chart == nil || got.Export.Chart.Type != viz.TypeBar {
		t.Errorf("chart = %+v, want the bar chart back", got.Export.Chart)
	}
}

func TestChartHandler_ExportChart_DefaultTitle(t *testing.T) {
	handler := NewChartHandler(zap.NewNop())

	body := `{"chart": {"type": "line", "labels": ["jan", "feb"]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/export-chart", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ExportChart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got exportChartResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Export.Title != viz.DefaultExportTitle {
		t.Errorf("title = %q, want the default", got.Export.Title)
	}
}

func TestChartHandler_ExportChart_MissingChart(t *testing.T) {
	handler := NewChartHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/export-chart", strings.NewReader(`{"title": "Empty"}`))
	rec := httptest.NewRecorder()

	handler.ExportChart(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var got errorBody
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(got.Error, "chart is required") {
		t.Errorf("error = %q, want mention of missing chart", got.Error)
	}
}
