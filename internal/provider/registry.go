// Package provider holds the immutable provider registry and the request →
// provider selection strategies.
package provider

import (
	"strings"

	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// Registration is the immutable per-provider OAuth2 client configuration.
// Built once at startup from config; never mutated afterwards.
type Registration struct {
	ID                string
	ClientID          string
	ClientSecret      string
	Issuer            string
	Audience          string
	AuthorizationURI  string
	TokenURI          string
	UserInfoURI       string
	RedirectURI       string
	Scopes            []string
	GrantType         string
	ResponseType      string
	UserNameAttribute string
	DisplayName       string
	PathPatterns      []string
}

// Complete reports whether the registration carries usable client credentials.
func (r Registration) Complete() bool {
	return r.ClientID != "" && r.ClientSecret != ""
}

type pathRule struct {
	pattern    string
	providerID string
}

// Registry maps provider id → Registration plus a path-pattern index.
// It is read-mostly: built once at startup, then read concurrently without
// locks. Re-registration only happens at process restart.
type Registry struct {
	byID  map[string]Registration
	rules []pathRule // registration order, first match wins
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Registration)}
}

// Build construye el registry desde la config. Entradas mal formadas (sin
// client id/secret) se loguean y se saltan; no tiran abajo a las demás.
func Build(providers []config.ProviderConfig) *Registry {
	log := logger.Named("provider.registry")
	reg := NewRegistry()
	for _, pc := range providers {
		if err := reg.Register(pc); err != nil {
			log.Warn("skipping provider registration",
				logger.ProviderID(pc.ID),
				logger.Err(err),
			)
			continue
		}
		log.Info("provider registered",
			logger.ProviderID(pc.ID),
			logger.Issuer(pc.Issuer),
			logger.Int("path_patterns", len(pc.PathPatterns)),
		)
	}
	return reg
}

// Register adds one provider. It fails on a blank/duplicate id or missing
// client credentials; callers decide whether that is fatal (at startup it is
// not: Build logs and skips).
func (g *Registry) Register(pc config.ProviderConfig) error {
	id := strings.TrimSpace(pc.ID)
	if id == "" {
		return errBlankID
	}
	if _, dup := g.byID[id]; dup {
		return errDuplicateID
	}
	r := Registration{
		ID:                id,
		ClientID:          strings.TrimSpace(pc.ClientID),
		ClientSecret:      strings.TrimSpace(pc.ClientSecret),
		Issuer:            pc.Issuer,
		Audience:          pc.Audience,
		AuthorizationURI:  pc.AuthorizationURI,
		TokenURI:          pc.TokenURI,
		UserInfoURI:       pc.UserInfoURI,
		RedirectURI:       pc.RedirectURI,
		Scopes:            append([]string(nil), pc.Scope...),
		GrantType:         pc.GrantType,
		ResponseType:      pc.ResponseType,
		UserNameAttribute: pc.UserNameAttribute,
		DisplayName:       pc.DisplayName,
		PathPatterns:      append([]string(nil), pc.PathPatterns...),
	}
	if !r.Complete() {
		return errIncomplete
	}
	g.byID[id] = r
	for _, pat := range r.PathPatterns {
		if pat = strings.TrimSpace(pat); pat != "" {
			g.rules = append(g.rules, pathRule{pattern: pat, providerID: id})
		}
	}
	return nil
}

// Lookup returns the registration for a provider id.
func (g *Registry) Lookup(id string) (Registration, bool) {
	r, ok := g.byID[id]
	return r, ok
}

// FindByPath resolves a request path to a provider id via the path-pattern
// index. First matching pattern in registration order wins.
func (g *Registry) FindByPath(path string) (string, bool) {
	for _, rule := range g.rules {
		if MatchPattern(rule.pattern, path) {
			return rule.providerID, true
		}
	}
	return "", false
}

// IDs returns the registered provider ids (registration order of first
// appearance is not preserved; used for diagnostics only).
func (g *Registry) IDs() []string {
	out := make([]string, 0, len(g.byID))
	for id := range g.byID {
		out = append(out, id)
	}
	return out
}

// MatchPattern matches a path against one pattern:
//
//	/x/**  — prefix: /x y todo lo que cuelgue de /x/
//	/x/*   — exactamente un segmento más bajo /x/
//	/x     — match exacto
func MatchPattern(pattern, path string) bool {
	switch {
	case strings.HasSuffix(pattern, "/**"):
		base := strings.TrimSuffix(pattern, "/**")
		return path == base || strings.HasPrefix(path, base+"/")
	case strings.HasSuffix(pattern, "/*"):
		base := strings.TrimSuffix(pattern, "/*")
		if !strings.HasPrefix(path, base+"/") {
			return false
		}
		rest := path[len(base)+1:]
		return rest != "" && !strings.Contains(rest, "/")
	default:
		return path == pattern
	}
}
