package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/janus/internal/http/middlewares"
)

// Whoami devuelve la identidad autenticada del request. Corre detrás del
// pipeline de validación, así que llega acá con subject garantizado.
func Whoami(w http.ResponseWriter, r *http.Request) {
	type payload struct {
		Subject  string `json:"subject"`
		Provider string `json:"provider,omitempty"`
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(payload{
		Subject:  middlewares.GetSubject(r.Context()),
		Provider: middlewares.GetProvider(r.Context()),
	})
}
