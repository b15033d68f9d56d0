package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/app"
	"github.com/dropDatabas3/janus/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.Server.Addr = ":0"
	cfg.Auth.DefaultProvider = "acme"
	cfg.Auth.ErrorRedirect = "/auth/error"
	cfg.Auth.SuccessRedirect = "/"
	cfg.Auth.Issuer = "janus-test"
	cfg.Auth.Session.CookieName = "JANUS_SESSION"
	cfg.Auth.Session.TTL = "30m"
	cfg.Auth.State.CookieName = "OAUTH2_STATE"
	cfg.Auth.State.TTL = "5m"
	cfg.Auth.CookiePaths = []string{"/mr/**"}
	cfg.Cache.Kind = "memory"
	cfg.Cache.Memory.DefaultTTL = "5m"
	cfg.Rate.Enabled = false
	cfg.Storage.Driver = "memory"
	cfg.Storage.Users = []config.SeedUser{{Subject: "jdoe@acme.example", Email: "jdoe@acme.example"}}
	cfg.Providers = []config.ProviderConfig{{
		ID:               "acme",
		ClientID:         "client-acme",
		ClientSecret:     "secret-acme",
		Issuer:           "https://sso.acme.example",
		Audience:         "portal-api",
		AuthorizationURI: "https://sso.acme.example/authorize",
		TokenURI:         "https://sso.acme.example/token",
		UserInfoURI:      "https://sso.acme.example/userinfo",
		RedirectURI:      "http://localhost:8080/auth/callback",
		Scope:            config.ScopeList{"openid", "email"},
		GrantType:        "authorization_code",
		ResponseType:     "code",
		PathPatterns:     []string{"/acme/**"},
	}}
	return cfg
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	c, err := app.Build(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c.Handler
}

func TestHealthz(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ok"`)
}

func TestLoginRedirectsToProvider(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/auth/login?provider=acme", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "https://sso.acme.example/authorize?"), loc)

	u, err := url.Parse(loc)
	require.NoError(t, err)
	require.Equal(t, "client-acme", u.Query().Get("client_id"))
	require.NotEmpty(t, u.Query().Get("state"))

	var hasStateCookie bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "OAUTH2_STATE" {
			hasStateCookie = true
			require.Equal(t, u.Query().Get("state"), ck.Value)
		}
	}
	require.True(t, hasStateCookie, "login must persist the state cookie")
}

func TestProtectedPathRedirectsWhenUnauthenticated(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/acme/dashboard", nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://sso.acme.example/authorize?"))
}

func TestErrorPage(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/auth/error", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Sign-in failed")
}

func TestCallbackWithoutParamsGoesToError(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/auth/callback", nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/auth/error", w.Header().Get("Location"))
}

func TestMetricsExposed(t *testing.T) {
	h := newServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
