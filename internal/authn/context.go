// Package authn holds the per-request authentication context and the error
// taxonomy shared by the selector, the validation pipeline and the login flow.
package authn

import "net/http"

// Context is the per-request authentication state. It is created at the top of
// request handling, passed explicitly through every step, and discarded when
// the request ends. It is never shared across requests.
type Context struct {
	// ProviderID is the identity provider selected for this request.
	ProviderID string

	// Resolved provider data, copied from the registration so later steps
	// don't need to hit the registry again.
	Issuer   string
	ClientID string
	Audience string
	Scopes   []string

	// State is the CSRF state value (phase 1: minted, phase 2: recovered).
	State string

	// Code is the authorization code (callback only).
	Code string

	// Token is the bearer token extracted from the request, if any.
	Token string

	// Subject is the validated session subject. Only the validation
	// pipeline writes it, and only after the token checked out.
	Subject string

	// RedirectURL is set when the pipeline decides this request must be
	// redirected. The first handler that fails owns it.
	RedirectURL string

	Request  *http.Request
	Response http.ResponseWriter
}

// NewContext builds a Context bound to one request/response pair.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{Request: r, Response: w}
}
