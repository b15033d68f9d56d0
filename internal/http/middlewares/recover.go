package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/janus/internal/observability/logger"
	"go.uber.org/zap"
)

// WithRecover captura panics y devuelve un 500 en lugar de crashear. Los
// panics dentro del login/callback ya los absorbe el flujo con su propio
// error redirect; esto cubre todo lo demás.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Op("recover"),
						logger.Path(r.URL.Path),
						zap.Any("panic", rec),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
