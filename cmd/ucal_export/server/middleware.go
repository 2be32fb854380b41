package server

import (
	"net/http"
	"time"

	"github.com/nsls2-sst/ucal-export/internal/metrics"
)

// Middleware records request metrics under the matched route pattern.
func Middleware(next http.Handler, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.InFlight().Inc()
		defer m.InFlight().Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// the mux sets Pattern on the request it dispatched
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.ObserveRequest(r.Method, endpoint, rw.statusCode, start)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
