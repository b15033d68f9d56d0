package provider_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/provider"
)

func newAC(target string) *authn.Context {
	r := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	return authn.NewContext(w, r)
}

func TestSelect_Totality(t *testing.T) {
	reg := provider.Build([]config.ProviderConfig{pc("acme", "/acme/**")})
	sel := provider.NewSelector(reg, nil, "acme")

	// Nada matchea: ni path, ni param, ni dominio. Aplica el default.
	ac := newAC("http://portal.example/other")
	if got := sel.Select(ac); got != "acme" {
		t.Fatalf("want default acme, got %q", got)
	}
	if ac.ProviderID != "acme" {
		t.Fatal("Select must write the chosen id into the context")
	}
}

func TestSelect_PathBeatsParam(t *testing.T) {
	reg := provider.Build([]config.ProviderConfig{
		pc("acme", "/acme/**"),
		pc("globex"),
	})
	sel := provider.NewSelector(reg, nil, "globex")

	// Path pattern y ?provider= presentes a la vez: gana el path.
	ac := newAC("http://portal.example/acme/dashboard?provider=globex")
	if got := sel.Select(ac); got != "acme" {
		t.Fatalf("path strategy must win, got %q", got)
	}
}

func TestSelect_ParamValidatedAgainstRegistry(t *testing.T) {
	reg := provider.Build([]config.ProviderConfig{pc("acme")})
	sel := provider.NewSelector(reg, nil, "acme")

	ac := newAC("http://portal.example/login?provider=invented")
	if got := sel.Select(ac); got != "acme" {
		t.Fatalf("unknown ?provider= must not select, got %q", got)
	}

	ac = newAC("http://portal.example/login?provider=acme")
	if got := sel.Select(ac); got != "acme" {
		t.Fatalf("want acme, got %q", got)
	}
}

func TestSelect_DomainStrategy(t *testing.T) {
	reg := provider.Build([]config.ProviderConfig{pc("acme"), pc("globex")})
	sel := provider.NewSelector(reg, map[string]string{"portal.globex.example": "globex"}, "acme")

	ac := newAC("http://portal.globex.example:8443/home")
	if got := sel.Select(ac); got != "globex" {
		t.Fatalf("domain strategy must strip port and match, got %q", got)
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panicky" }
func (panicStrategy) Select(ac *authn.Context) (string, bool) {
	panic("strategy blew up")
}

type fixedStrategy struct{ id string }

func (fixedStrategy) Name() string { return "fixed" }
func (s fixedStrategy) Select(ac *authn.Context) (string, bool) {
	return s.id, true
}

func TestSelect_PanickingStrategyIsNoOpinion(t *testing.T) {
	sel := provider.NewSelectorWithStrategies([]provider.Strategy{
		panicStrategy{},
		fixedStrategy{id: "globex"},
	}, "acme")

	ac := newAC("http://portal.example/x")
	if got := sel.Select(ac); got != "globex" {
		t.Fatalf("panicking strategy must not break the chain, got %q", got)
	}
}

func TestSelect_NilRequestDoesNotPanicSelection(t *testing.T) {
	reg := provider.Build([]config.ProviderConfig{pc("acme", "/acme/**")})
	sel := provider.NewSelector(reg, map[string]string{"x": "acme"}, "acme")

	// Sin request todas las estrategias abstienen; el default responde.
	ac := &authn.Context{}
	if got := sel.Select(ac); got != "acme" {
		t.Fatalf("want default on nil request, got %q", got)
	}
}
