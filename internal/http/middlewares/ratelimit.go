package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/rate"
)

// IPPathRateKey genera la key IP + path. Separa los límites de login y
// callback sin depender del body.
func IPPathRateKey(r *http.Request) string {
	return ClientIP(r) + "|" + r.URL.Path
}

// WithRateLimit limita requests por key dentro de una ventana fija.
// Responde 429 con Retry-After cuando se agota el presupuesto.
func WithRateLimit(limiter *rate.Limiter, keyFn func(*http.Request) string, limit int, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), keyFn(r), limit, window)
			if err != nil {
				// fail-open: un cache caído no bloquea logins
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				logger.From(r.Context()).Warn("rate limit exceeded",
					logger.ClientIP(ClientIP(r)),
					logger.Path(r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
