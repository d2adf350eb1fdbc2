package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/metrics"
)

// Metrics returns middleware that records every request in the Prometheus
// collectors. Paths are fixed API routes, so they are safe as a label.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.ObserveHTTPRequest(
			r.Method,
			r.URL.Path,
			strconv.Itoa(wrapped.statusCode),
			time.Since(start).Seconds(),
		)
	})
}
