// Package metrics holds the engine's Prometheus collectors. Counters are
// the only state shared across requests; everything else in the engine is
// rebuilt per request.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragllm_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragllm_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	aiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragllm_ai_requests_total",
			Help: "AI provider calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	aiRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ragllm_ai_retries_total",
			Help: "Total number of retried AI provider calls.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		aiRequestsTotal,
		aiRetriesTotal,
	)
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(seconds)
}

// RecordAIRequest records one AI provider call. Outcome is "ok" or the
// error kind the failure classified to.
func RecordAIRequest(operation, outcome string) {
	aiRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAIRetry counts one retried provider attempt.
func RecordAIRetry() {
	aiRetriesTotal.Inc()
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
