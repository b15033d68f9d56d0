package provider

import (
	"strings"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// Strategy inspects a request and either names a provider or abstains.
type Strategy interface {
	Name() string
	// Select returns (providerID, true) when the strategy has an opinion.
	Select(ac *authn.Context) (string, bool)
}

// Selector runs the strategies in a fixed priority order: path pattern, then
// explicit ?provider= parameter, then Host header. The first opinion wins; if
// nobody opines the configured default applies, so Select is total.
type Selector struct {
	strategies []Strategy
	fallback   string
}

func NewSelector(reg *Registry, domains map[string]string, defaultProvider string) *Selector {
	return NewSelectorWithStrategies([]Strategy{
		pathStrategy{reg: reg},
		paramStrategy{reg: reg},
		domainStrategy{domains: domains},
	}, defaultProvider)
}

// NewSelectorWithStrategies arma un selector con una cadena arbitraria.
// El orden de la lista es el orden de prioridad.
func NewSelectorWithStrategies(strategies []Strategy, defaultProvider string) *Selector {
	return &Selector{strategies: strategies, fallback: defaultProvider}
}

// Select siempre devuelve un provider id y lo escribe en el contexto.
// Una estrategia que haga panic cuenta como "sin opinión" solo para ella:
// se loguea y la cadena sigue.
func (s *Selector) Select(ac *authn.Context) string {
	for _, st := range s.strategies {
		if id, ok := s.tryStrategy(st, ac); ok {
			ac.ProviderID = id
			return id
		}
	}
	ac.ProviderID = s.fallback
	return s.fallback
}

func (s *Selector) tryStrategy(st Strategy, ac *authn.Context) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Named("provider.selector").Warn("strategy panicked, treating as no opinion",
				logger.Strategy(st.Name()),
				logger.String("panic", stringify(r)),
			)
			id, ok = "", false
		}
	}()
	return st.Select(ac)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if e, ok := v.(error); ok {
		return e.Error()
	}
	return "non-string panic"
}

// pathStrategy resuelve por los path patterns registrados en el registry.
type pathStrategy struct{ reg *Registry }

func (pathStrategy) Name() string { return "path" }

func (p pathStrategy) Select(ac *authn.Context) (string, bool) {
	if ac.Request == nil {
		return "", false
	}
	return p.reg.FindByPath(ac.Request.URL.Path)
}

// paramStrategy honra un ?provider=<id> explícito, validado contra el registry
// para que un parámetro inventado no seleccione nada.
type paramStrategy struct{ reg *Registry }

func (paramStrategy) Name() string { return "param" }

func (p paramStrategy) Select(ac *authn.Context) (string, bool) {
	if ac.Request == nil {
		return "", false
	}
	id := strings.TrimSpace(ac.Request.URL.Query().Get("provider"))
	if id == "" {
		return "", false
	}
	if _, ok := p.reg.Lookup(id); !ok {
		return "", false
	}
	return id, true
}

// domainStrategy resuelve por el Host del request contra un mapa estático.
type domainStrategy struct{ domains map[string]string }

func (domainStrategy) Name() string { return "domain" }

func (d domainStrategy) Select(ac *authn.Context) (string, bool) {
	if ac.Request == nil || len(d.domains) == 0 {
		return "", false
	}
	host := ac.Request.Host
	if i := strings.IndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	id, ok := d.domains[strings.ToLower(host)]
	return id, ok && id != ""
}
