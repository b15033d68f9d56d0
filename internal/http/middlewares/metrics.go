package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/janus/internal/observability/metrics"
)

// WithMetrics alimenta los contadores/histogramas Prometheus por request.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.RequestStarted()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.RequestDone()
			metrics.ObserveRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
