// Package handlers contiene los endpoints HTTP del gateway: login, callback
// y los de soporte (whoami, health, error).
package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/flow"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	"github.com/dropDatabas3/janus/internal/provider"
)

// Auth expone las dos fases del flujo OAuth2.
type Auth struct {
	selector *provider.Selector
	flow     *flow.Flow
}

func NewAuth(selector *provider.Selector, fl *flow.Flow) *Auth {
	return &Auth{selector: selector, flow: fl}
}

// Login dispara la fase 1: selecciona provider y redirige al authorization
// endpoint con un state CSRF fresco en cookie.
//
//	GET /auth/login[?provider=<id>]
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	ac := authn.NewContext(w, r)
	h.selector.Select(ac)

	if h.flow.ExecuteLogin(ac) {
		metrics.RecordLogin(ac.ProviderID, "redirected")
		return
	}
	metrics.RecordLogin(ac.ProviderID, "error")
}

// Callback dispara la cadena de guards y la fase 2.
//
//	GET /auth/callback?code=&state=[&error=&error_description=]
func (h *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	ac := authn.NewContext(w, r)
	q := r.URL.Query()
	ac.Code = strings.TrimSpace(q.Get("code"))
	ac.State = q.Get("state")

	if h.flow.ExecuteCallback(ac) {
		metrics.RecordCallback(ac.ProviderID, "success")
		return
	}
	metrics.RecordCallback(ac.ProviderID, "rejected")
}
