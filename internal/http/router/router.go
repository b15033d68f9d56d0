// Package router arma el árbol de rutas del gateway: endpoints de auth,
// soporte operativo y el catch-all protegido por el pipeline de validación.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/janus/internal/http/handlers"
	mw "github.com/dropDatabas3/janus/internal/http/middlewares"
	"github.com/dropDatabas3/janus/internal/pipeline"
	"github.com/dropDatabas3/janus/internal/rate"
)

// RateRule es un presupuesto de requests por ventana.
type RateRule struct {
	Limit  int
	Window time.Duration
}

// Deps contiene las dependencias del router.
type Deps struct {
	Auth     *handlers.Auth
	Pipeline *pipeline.Pipeline

	// Limiter es opcional; sin limiter los endpoints de auth no se limitan.
	Limiter      *rate.Limiter
	RateLogin    RateRule
	RateCallback RateRule

	// Metrics es el handler de /metrics. Ready el de /readyz.
	Metrics http.Handler
	Ready   http.HandlerFunc

	// ErrorPath es el destino terminal de los fallos de auth.
	ErrorPath string

	// App atiende todo path que sobrevive al pipeline. Nil usa un 404 JSON.
	App http.Handler
}

// New construye el http.Handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRequestID(),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
		mw.WithMetrics(),
		mw.WithLogging(),
	)

	// Soporte operativo: sin pipeline, sin rate limit.
	r.Get("/healthz", handlers.Healthz)
	if deps.Ready != nil {
		r.Get("/readyz", deps.Ready)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	errorPath := deps.ErrorPath
	if errorPath == "" {
		errorPath = "/auth/error"
	}
	r.Get(errorPath, handlers.AuthError)

	// Fase 1 y fase 2, cada una con su presupuesto de rate limit.
	r.Group(func(r chi.Router) {
		if deps.Limiter != nil && deps.RateLogin.Limit > 0 {
			r.Use(mw.WithRateLimit(deps.Limiter, mw.IPPathRateKey, deps.RateLogin.Limit, deps.RateLogin.Window))
		}
		r.Get("/auth/login", deps.Auth.Login)
	})
	r.Group(func(r chi.Router) {
		if deps.Limiter != nil && deps.RateCallback.Limit > 0 {
			r.Use(mw.WithRateLimit(deps.Limiter, mw.IPPathRateKey, deps.RateCallback.Limit, deps.RateCallback.Window))
		}
		r.Get("/auth/callback", deps.Auth.Callback)
	})

	// Todo lo demás pasa por el pipeline: sesión válida sigue (renovada),
	// lo demás se va 302 al authorization endpoint del provider.
	app := deps.App
	if app == nil {
		app = http.HandlerFunc(notFoundJSON)
	}
	r.Group(func(r chi.Router) {
		r.Use(mw.WithValidation(deps.Pipeline))
		r.Get("/auth/whoami", handlers.Whoami)
		r.Handle("/*", app)
	})

	return r
}

func notFoundJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
}
