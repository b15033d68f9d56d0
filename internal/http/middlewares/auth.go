package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	"github.com/dropDatabas3/janus/internal/pipeline"
)

type subjectKey struct{}
type providerKey struct{}

// WithValidation pasa cada request por el pipeline de validación. Éxito:
// sigue con la cookie de sesión ya renovada y el subject en el contexto.
// Falla: 302 a la URL que decidió el primer handler que falló.
func WithValidation(p *pipeline.Pipeline) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := authn.NewContext(w, r)
			verdict := p.Run(ac)
			if !verdict.Authenticated {
				metrics.RecordPipeline("redirect")
				http.Redirect(w, r, verdict.RedirectURL, http.StatusFound)
				return
			}
			metrics.RecordPipeline("authenticated")
			ctx := context.WithValue(r.Context(), subjectKey{}, verdict.Subject)
			ctx = context.WithValue(ctx, providerKey{}, ac.ProviderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject devuelve el subject autenticado del contexto, o "".
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey{}).(string); ok {
		return v
	}
	return ""
}

// GetProvider devuelve el provider id seleccionado para el request, o "".
func GetProvider(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey{}).(string); ok {
		return v
	}
	return ""
}
