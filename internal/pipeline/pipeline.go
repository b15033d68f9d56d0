// Package pipeline implements the validate-or-redirect state machine that
// decides, per request, "is this already authenticated". It is a fixed chain
// of handlers; the first failure short-circuits the rest and owns the
// redirect target.
package pipeline

import (
	"errors"
	"time"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/http/helpers"
	"github.com/dropDatabas3/janus/internal/oauth"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/provider"
	"github.com/dropDatabas3/janus/internal/token"
	"go.uber.org/zap"
)

// Result es el resultado tagged de cada handler: seguir, o cortar la cadena
// con un redirect.
type Result struct {
	failed   bool
	redirect string
}

// Continue deja pasar al siguiente handler.
func Continue() Result { return Result{} }

// Fail corta la cadena. El primer handler que falla es dueño del redirect;
// los siguientes ni corren.
func Fail(redirect string) Result { return Result{failed: true, redirect: redirect} }

// Failed reports whether the result short-circuits the chain.
func (r Result) Failed() bool { return r.failed }

// Redirect returns the redirect target of a failed result.
func (r Result) Redirect() string { return r.redirect }

// Handler produce un estado de la cadena de validación.
type Handler interface {
	Name() string
	Handle(ac *authn.Context) Result
}

// Verdict is what running the whole chain yields.
type Verdict struct {
	Authenticated bool
	RedirectURL   string
	Subject       string
}

// Deps agrupa los colaboradores del pipeline. Se construye una vez en el
// arranque y se comparte entre requests (todo read-only).
type Deps struct {
	Registry *provider.Registry
	Selector *provider.Selector
	Codec    *token.Codec

	// CookiePaths son los patterns "cookie-eligible": ahí el bearer se lee
	// de la cookie de sesión en vez del header Authorization.
	CookiePaths []string

	ErrorRedirect     string
	SessionCookieName string
	StateCookieName   string
	Cookies           helpers.CookieSettings
	SessionTTL        time.Duration
	StateTTL          time.Duration
}

// Pipeline corre la secuencia fija:
// ResolveProvider → ResolveContext → EnsureState → CredentialPresence → ValidateToken.
// Ningún handler se saltea salvo por una falla anterior.
type Pipeline struct {
	deps     Deps
	handlers []Handler
	log      *zap.Logger
}

func New(deps Deps) *Pipeline {
	p := &Pipeline{deps: deps, log: logger.Named("pipeline")}
	p.handlers = []Handler{
		resolveProvider{p},
		resolveContext{p},
		ensureState{p},
		credentialPresence{p},
		validateToken{p},
	}
	return p
}

// Run ejecuta la cadena sobre un contexto de request. Correr todos los
// handlers hasta el final es Authenticated; cualquier falla intermedia
// devuelve NeedsRedirect con la URL del primer handler que falló.
func (p *Pipeline) Run(ac *authn.Context) Verdict {
	for _, h := range p.handlers {
		res := h.Handle(ac)
		if res.Failed() {
			if ac.RedirectURL == "" {
				ac.RedirectURL = res.Redirect()
			}
			p.log.Debug("chain short-circuited",
				logger.String("handler", h.Name()),
				logger.ProviderID(ac.ProviderID),
				logger.Path(requestPath(ac)),
			)
			return Verdict{RedirectURL: ac.RedirectURL}
		}
	}
	return Verdict{Authenticated: true, Subject: ac.Subject}
}

// CookieEligible decide si el path lee credenciales desde cookie.
func (p *Pipeline) CookieEligible(path string) bool {
	for _, pat := range p.deps.CookiePaths {
		if provider.MatchPattern(pat, path) {
			return true
		}
	}
	return false
}

func requestPath(ac *authn.Context) string {
	if ac.Request == nil {
		return ""
	}
	return ac.Request.URL.Path
}

// authorizeRedirect arma la URL de autorización del provider con el state
// vigente. Si la registración está rota cae al error redirect genérico.
func (p *Pipeline) authorizeRedirect(ac *authn.Context) string {
	reg, ok := p.deps.Registry.Lookup(ac.ProviderID)
	if !ok {
		return p.deps.ErrorRedirect
	}
	u, err := oauth.AuthorizeURL(reg, ac.State)
	if err != nil {
		p.log.Error("authorize url construction failed",
			logger.ProviderID(ac.ProviderID), logger.Err(err))
		return p.deps.ErrorRedirect
	}
	return u
}

// ============================================================
// Handlers
// ============================================================

// resolveProvider: sin provider id no hay nada que validar.
type resolveProvider struct{ p *Pipeline }

func (resolveProvider) Name() string { return "resolve_provider" }

func (h resolveProvider) Handle(ac *authn.Context) Result {
	id := h.p.deps.Selector.Select(ac)
	if id == "" {
		h.p.log.Error("no provider resolvable for request",
			logger.Path(requestPath(ac)))
		return Fail(h.p.deps.ErrorRedirect)
	}
	return Continue()
}

// resolveContext copia la registración al contexto. Una registración ausente
// o incompleta es un defecto de deployment, no un redirect de login.
type resolveContext struct{ p *Pipeline }

func (resolveContext) Name() string { return "resolve_context" }

func (h resolveContext) Handle(ac *authn.Context) Result {
	reg, ok := h.p.deps.Registry.Lookup(ac.ProviderID)
	if !ok || !reg.Complete() {
		cfgErr := &authn.ConfigurationError{ProviderID: ac.ProviderID, Detail: "registration absent or incomplete"}
		h.p.log.Error("provider misconfigured",
			logger.ProviderID(ac.ProviderID), logger.Err(cfgErr))
		return Fail(h.p.deps.ErrorRedirect)
	}
	ac.Issuer = reg.Issuer
	ac.ClientID = reg.ClientID
	ac.Audience = reg.Audience
	ac.Scopes = append([]string(nil), reg.Scopes...)
	return Continue()
}

// ensureState garantiza que haya un state CSRF listo si este request termina
// en un redirect de login. Nunca falla la cadena: su único efecto es emitir
// la cookie cuando falta.
type ensureState struct{ p *Pipeline }

func (ensureState) Name() string { return "ensure_state" }

func (h ensureState) Handle(ac *authn.Context) Result {
	if ac.Request != nil {
		if ck, err := ac.Request.Cookie(h.p.deps.StateCookieName); err == nil && ck.Value != "" {
			ac.State = ck.Value
			return Continue()
		}
	}
	jwt, err := h.p.deps.Codec.GenerateState(ac.ProviderID, ac.Issuer, ac.ClientID, ac.Audience)
	if err != nil {
		h.p.log.Warn("could not mint csrf state", logger.ProviderID(ac.ProviderID), logger.Err(err))
		return Continue()
	}
	value := token.EncodeStateValue(ac.ProviderID, jwt)
	ac.State = value
	if ac.Response != nil {
		ck := helpers.BuildCookie(h.p.deps.StateCookieName, value, h.p.deps.Cookies, h.p.deps.StateTTL)
		ac.Response.Header().Add("Set-Cookie", ck.String())
	}
	return Continue()
}

// credentialPresence extrae el bearer según la convención del path: paths
// cookie-eligible leen la cookie de sesión, el resto el header Authorization.
// Sin credencial, el request va al authorization endpoint del provider.
type credentialPresence struct{ p *Pipeline }

func (credentialPresence) Name() string { return "credential_presence" }

func (h credentialPresence) Handle(ac *authn.Context) Result {
	name := token.ExtractorHeader
	if h.p.CookieEligible(requestPath(ac)) {
		name = token.ExtractorCookie
	}
	extract, ok := h.p.deps.Codec.Extractor(name)
	if !ok {
		h.p.log.Error("unknown extractor", logger.String("extractor", name))
		return Fail(h.p.deps.ErrorRedirect)
	}
	if ac.Request != nil {
		ac.Token = extract(ac.Request)
	}
	if ac.Token == "" {
		return Fail(h.p.authorizeRedirect(ac))
	}
	return Continue()
}

// validateToken valida el session token y, si está sano, lo renueva: mismo
// subject, iat nuevo, expiry estrictamente posterior, seteado como cookie.
type validateToken struct{ p *Pipeline }

func (validateToken) Name() string { return "validate_token" }

func (h validateToken) Handle(ac *authn.Context) Result {
	claims, err := h.p.deps.Codec.ValidateSession(ac.Token)
	if err != nil {
		// Un token vencido no es una falla del sistema: es el disparador
		// esperado de re-autenticación.
		if errors.Is(err, token.ErrTokenExpired) {
			h.p.log.Info("session expired, redirecting to login",
				logger.ProviderID(ac.ProviderID))
		} else {
			h.p.log.Warn("session token rejected",
				logger.ProviderID(ac.ProviderID), logger.Err(errors.Join(authn.ErrSessionToken, err)))
		}
		return Fail(h.p.authorizeRedirect(ac))
	}

	sub, _ := claims["sub"].(string)
	ac.Subject = sub

	refreshed, exp, err := h.p.deps.Codec.RefreshSession(claims)
	if err != nil {
		h.p.log.Warn("session refresh failed, keeping current token",
			logger.Subject(sub), logger.Err(err))
		return Continue()
	}
	if ac.Response != nil {
		ttl := time.Until(exp)
		ck := helpers.BuildCookie(h.p.deps.SessionCookieName, refreshed, h.p.deps.Cookies, ttl)
		ac.Response.Header().Add("Set-Cookie", ck.String())
	}
	return Continue()
}
