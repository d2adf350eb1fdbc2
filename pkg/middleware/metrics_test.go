package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/metrics"
)

func TestMetrics_RecordsRequest(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	// Unique path so the exposition check cannot collide with other tests.
	req := httptest.NewRequest(http.MethodGet, "/middleware-metrics-probe", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}

	expo := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(expo, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `ragllm_http_requests_total{method="GET",path="/middleware-metrics-probe",status="418"}`
	if !strings.Contains(expo.Body.String(), want) {
		t.Errorf("expected exposition to contain %q", want)
	}
}

func TestMetrics_DefaultsStatusTo200(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/middleware-metrics-implicit", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	expo := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(expo, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `ragllm_http_requests_total{method="GET",path="/middleware-metrics-implicit",status="200"}`
	if !strings.Contains(expo.Body.String(), want) {
		t.Errorf("expected exposition to contain %q", want)
	}
}
