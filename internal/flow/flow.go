// Package flow implementa el orquestador de login/callback: el esqueleto de
// dos fases del authorization-code flow. El esqueleto es fijo; solo los pasos
// con corchetes (generar state, armar URL, exchange, userinfo, resolver
// usuario, emitir sesión) son enchufables por deployment.
package flow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/http/helpers"
	"github.com/dropDatabas3/janus/internal/oauth"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	"github.com/dropDatabas3/janus/internal/provider"
	"github.com/dropDatabas3/janus/internal/store"
	"github.com/dropDatabas3/janus/internal/token"
	"github.com/dropDatabas3/janus/internal/util"
	"go.uber.org/zap"
)

// Steps son los pasos enchufables del esqueleto. El driver (ExecuteLogin /
// ExecuteCallback) nunca se reemplaza: las invariantes las garantiza él, no
// la convención.
type Steps struct {
	// Fase 1
	GenerateState func(ac *authn.Context, reg provider.Registration) (string, error)
	BuildAuthURL  func(reg provider.Registration, state string) (string, error)
	PersistState  func(ac *authn.Context, state string)

	// Fase 2
	ExchangeCode  func(ctx context.Context, reg provider.Registration, code string) (*oauth.TokenResponse, error)
	FetchUserInfo func(ctx context.Context, reg provider.Registration, accessToken string) (map[string]any, error)
	ResolveUser   func(ctx context.Context, reg provider.Registration, info map[string]any) (*store.User, error)
	MintSession   func(ac *authn.Context, user *store.User) error
}

// Options fija las URLs terminales y los atributos de cookies del flujo.
type Options struct {
	SuccessRedirect   string
	ErrorRedirect     string
	SessionCookieName string
	StateCookieName   string
	Cookies           helpers.CookieSettings
	SessionTTL        time.Duration
	StateTTL          time.Duration

	// AutoProvision crea la cuenta local al primer login federado si el
	// directorio lo soporta. Apagado, un usuario sin cuenta es terminal.
	AutoProvision bool
}

// Flow corre las dos fases del protocolo contra un registry de providers.
type Flow struct {
	registry *provider.Registry
	guards   *Guards
	steps    Steps
	opts     Options
	log      *zap.Logger
}

func New(registry *provider.Registry, guards *Guards, steps Steps, opts Options) *Flow {
	return &Flow{
		registry: registry,
		guards:   guards,
		steps:    steps,
		opts:     opts,
		log:      logger.Named("flow"),
	}
}

// DefaultSteps arma los pasos estándar: state firmado por el codec, exchange
// y userinfo por el cliente OAuth, resolución contra el directorio local y
// sesión emitida como cookie.
func DefaultSteps(codec *token.Codec, exchanger oauth.Exchanger, dir store.Directory, opts Options) Steps {
	return Steps{
		GenerateState: func(ac *authn.Context, reg provider.Registration) (string, error) {
			jwt, err := codec.GenerateState(reg.ID, reg.Issuer, reg.ClientID, reg.Audience)
			if err != nil {
				return "", err
			}
			return token.EncodeStateValue(reg.ID, jwt), nil
		},
		BuildAuthURL: oauth.AuthorizeURL,
		PersistState: func(ac *authn.Context, state string) {
			if ac.Response == nil {
				return
			}
			ck := helpers.BuildCookie(opts.StateCookieName, state, opts.Cookies, opts.StateTTL)
			ac.Response.Header().Add("Set-Cookie", ck.String())
		},
		ExchangeCode:  exchanger.ExchangeCode,
		FetchUserInfo: exchanger.FetchUserInfo,
		ResolveUser: func(ctx context.Context, reg provider.Registration, info map[string]any) (*store.User, error) {
			username, _ := info[reg.UserNameAttribute].(string)
			if username == "" {
				return nil, &authn.UserResolutionError{ProviderID: reg.ID, Subject: "(no " + reg.UserNameAttribute + " claim)"}
			}
			u, err := dir.FindByUsername(ctx, username)
			if errors.Is(err, store.ErrUserNotFound) {
				if prov, ok := dir.(store.Provisioner); ok && opts.AutoProvision {
					email, _ := info["email"].(string)
					name, _ := info["name"].(string)
					return prov.Provision(ctx, username, email, name)
				}
				return nil, &authn.UserResolutionError{ProviderID: reg.ID, Subject: util.MaskIdentity(username)}
			}
			if err != nil {
				return nil, err
			}
			return u, nil
		},
		MintSession: func(ac *authn.Context, user *store.User) error {
			extra := map[string]any{"uid": user.ID}
			if user.DisplayName != "" {
				extra["name"] = user.DisplayName
			}
			if ac.ProviderID != "" {
				extra["idp"] = ac.ProviderID
			}
			signed, exp, err := codec.GenerateSession(user.Username, extra)
			if err != nil {
				return err
			}
			if ac.Response != nil {
				ck := helpers.BuildCookie(opts.SessionCookieName, signed, opts.Cookies, time.Until(exp))
				ac.Response.Header().Add("Set-Cookie", ck.String())
			}
			return nil
		},
	}
}

// ExecuteLogin es la fase 1: valida precondiciones, arma la URL de
// autorización del provider con un state CSRF fresco, persiste el state como
// cookie y redirige 302. Cualquier panic o error intermedio termina en el
// error redirect, nunca en un fault crudo al browser.
func (f *Flow) ExecuteLogin(ac *authn.Context) (ok bool) {
	defer f.recoverToError(ac, "login")

	if ac == nil || ac.Request == nil || ac.Response == nil {
		f.log.Error("login precondition failed: incomplete context")
		return false
	}
	if ac.ProviderID == "" {
		f.fail(ac, "login", &authn.ConfigurationError{Detail: "no provider selected"})
		return false
	}
	reg, found := f.registry.Lookup(ac.ProviderID)
	if !found || !reg.Complete() {
		f.fail(ac, "login", &authn.ConfigurationError{ProviderID: ac.ProviderID, Detail: "registration absent or incomplete"})
		return false
	}

	state, err := f.steps.GenerateState(ac, reg)
	if err != nil {
		f.fail(ac, "login", fmt.Errorf("generate state: %w", err))
		return false
	}
	ac.State = state

	authURL, err := f.steps.BuildAuthURL(reg, state)
	if err != nil {
		f.fail(ac, "login", fmt.Errorf("build authorization url: %w", err))
		return false
	}

	f.steps.PersistState(ac, state)

	f.log.Info("redirecting to provider",
		logger.ProviderID(reg.ID),
		logger.ClientID(reg.ClientID),
	)
	http.Redirect(ac.Response, ac.Request, authURL, http.StatusFound)
	return true
}

// ExecuteCallback es la fase 2: guards, exchange del code, userinfo,
// resolución del usuario local, sesión y redirect de éxito. Toda condición
// terminal converge en el mismo error redirect; la taxonomía solo vive en
// los logs.
func (f *Flow) ExecuteCallback(ac *authn.Context) (ok bool) {
	defer f.recoverToError(ac, "callback")

	if ac == nil || ac.Request == nil || ac.Response == nil {
		f.log.Error("callback precondition failed: incomplete context")
		return false
	}
	if ac.Code == "" || ac.State == "" {
		f.fail(ac, "callback", &authn.CsrfStateError{Detail: "missing code or state"})
		return false
	}
	if !f.guards.Execute(ac) {
		f.redirectError(ac)
		return false
	}

	// El state guard ya recuperó el provider id del state firmado.
	reg, found := f.registry.Lookup(ac.ProviderID)
	if !found {
		f.fail(ac, "callback", &authn.ConfigurationError{ProviderID: ac.ProviderID, Detail: "unknown provider"})
		return false
	}

	ctx := ac.Request.Context()

	tr, err := f.steps.ExchangeCode(ctx, reg, ac.Code)
	if err != nil {
		f.logExchangeFailure(ac, err)
		f.redirectError(ac)
		return false
	}

	info, err := f.steps.FetchUserInfo(ctx, reg, tr.AccessToken)
	if err != nil || len(info) == 0 {
		if err == nil {
			err = fmt.Errorf("empty userinfo response")
		}
		f.fail(ac, "callback", fmt.Errorf("userinfo: %w", err))
		return false
	}

	user, err := f.steps.ResolveUser(ctx, reg, info)
	if err != nil {
		// "usuario desconocido" se distingue de "provider roto" en logs,
		// pero el browser ve el mismo redirect para no filtrar enumeración
		// de cuentas.
		f.fail(ac, "callback", err)
		return false
	}

	if err := f.steps.MintSession(ac, user); err != nil {
		f.fail(ac, "callback", fmt.Errorf("mint session: %w", err))
		return false
	}

	// El state ya cumplió su ciclo: se borra del browser.
	del := helpers.BuildDeletionCookie(f.opts.StateCookieName, f.opts.Cookies)
	ac.Response.Header().Add("Set-Cookie", del.String())

	f.log.Info("login completed",
		logger.ProviderID(reg.ID),
		logger.Subject(util.MaskIdentity(user.Username)),
	)
	http.Redirect(ac.Response, ac.Request, f.opts.SuccessRedirect, http.StatusFound)
	return true
}

func (f *Flow) fail(ac *authn.Context, phase string, err error) {
	var cfg *authn.ConfigurationError
	switch {
	case errors.As(err, &cfg):
		f.log.Error(phase+" aborted", logger.ProviderID(ac.ProviderID), logger.Err(err))
	default:
		f.log.Warn(phase+" aborted", logger.ProviderID(ac.ProviderID), logger.Err(err))
	}
	f.redirectError(ac)
}

func (f *Flow) logExchangeFailure(ac *authn.Context, err error) {
	var xerr *authn.TokenExchangeError
	if errors.As(err, &xerr) {
		metrics.RecordExchangeFailure(xerr.ProviderID, xerr.Status)
		f.log.Warn("token exchange failed",
			logger.ProviderID(xerr.ProviderID),
			logger.Status(xerr.Status),
			logger.String("provider_body", xerr.Body),
			logger.Err(xerr.Err),
		)
		return
	}
	metrics.RecordExchangeFailure(ac.ProviderID, 0)
	f.log.Warn("token exchange failed", logger.ProviderID(ac.ProviderID), logger.Err(err))
}

func (f *Flow) redirectError(ac *authn.Context) {
	if ac == nil || ac.Response == nil || ac.Request == nil {
		return
	}
	http.Redirect(ac.Response, ac.Request, f.opts.ErrorRedirect, http.StatusFound)
}

// recoverToError garantiza que ninguna fase escape como fault crudo.
func (f *Flow) recoverToError(ac *authn.Context, phase string) {
	if r := recover(); r != nil {
		f.log.Error(phase+" panicked", logger.String("panic", fmt.Sprint(r)))
		f.redirectError(ac)
	}
}
