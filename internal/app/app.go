// Package app arma el contenedor del gateway: construye cada pieza desde la
// config y las deja cableadas para el servidor HTTP.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/janus/internal/cache"
	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/flow"
	"github.com/dropDatabas3/janus/internal/http/handlers"
	"github.com/dropDatabas3/janus/internal/http/helpers"
	"github.com/dropDatabas3/janus/internal/http/router"
	"github.com/dropDatabas3/janus/internal/oauth"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	"github.com/dropDatabas3/janus/internal/pipeline"
	"github.com/dropDatabas3/janus/internal/provider"
	"github.com/dropDatabas3/janus/internal/rate"
	"github.com/dropDatabas3/janus/internal/store"
	"github.com/dropDatabas3/janus/internal/token"
)

// Container agrupa las dependencias vivas del proceso.
type Container struct {
	Cfg      *config.Config
	Registry *provider.Registry
	Selector *provider.Selector
	Issuer   *token.Issuer
	Codec    *token.Codec
	Cache    cache.Client
	Limiter  *rate.Limiter
	Users    store.Directory
	Flow     *flow.Flow
	Pipeline *pipeline.Pipeline
	Handler  http.Handler
}

// Build construye el contenedor completo. Providers mal formados se saltan
// (lo resuelve el registry); lo que rompería el proceso entero falla acá.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := provider.Build(cfg.Providers)
	selector := provider.NewSelector(registry, cfg.Domains, cfg.Auth.DefaultProvider)

	issuer, err := token.NewIssuer(cfg.Auth.Issuer, cfg.Auth.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	codec := token.NewCodec(issuer, cfg.Auth.Session.CookieName, cfg.SessionTTL(), cfg.StateTTL())

	var cc cache.Client
	var redisPing func(context.Context) error
	switch cfg.Cache.Kind {
	case "redis":
		rc := cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		redisPing = rc.Ping
		cc = rc
	default:
		memTTL, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
		if memTTL <= 0 {
			memTTL = 5 * time.Minute
		}
		cc = cache.NewMemory(memTTL)
	}

	var limiter *rate.Limiter
	if cfg.Rate.Enabled {
		limiter = rate.NewLimiter(cc, "rl:")
	}

	var users store.Directory
	var pgPing func(context.Context) error
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := store.OpenPG(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pgPing = pg.Ping
		users = pg
	default:
		users = store.NewMemory(cfg.Storage.Users)
	}

	cookies := helpers.CookieSettings{
		Domain:   cfg.Auth.Session.Domain,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
	}
	opts := flow.Options{
		SuccessRedirect:   cfg.Auth.SuccessRedirect,
		ErrorRedirect:     cfg.Auth.ErrorRedirect,
		SessionCookieName: cfg.Auth.Session.CookieName,
		StateCookieName:   cfg.Auth.State.CookieName,
		Cookies:           cookies,
		SessionTTL:        cfg.SessionTTL(),
		StateTTL:          cfg.StateTTL(),
		AutoProvision:     cfg.Storage.AutoProvision,
	}

	oc := oauth.NewClient(0)

	var replay cache.Client
	if cfg.Auth.State.SingleUse {
		replay = cc
	}
	guards := flow.NewGuards(codec, registry, cfg.Auth.State.CookieName, replay)
	fl := flow.New(registry, guards, flow.DefaultSteps(codec, oc, users, opts), opts)

	pl := pipeline.New(pipeline.Deps{
		Registry:          registry,
		Selector:          selector,
		Codec:             codec,
		CookiePaths:       cfg.Auth.CookiePaths,
		ErrorRedirect:     cfg.Auth.ErrorRedirect,
		SessionCookieName: cfg.Auth.Session.CookieName,
		StateCookieName:   cfg.Auth.State.CookieName,
		Cookies:           cookies,
		SessionTTL:        cfg.SessionTTL(),
		StateTTL:          cfg.StateTTL(),
	})

	ready := map[string]handlers.Pinger{}
	if redisPing != nil {
		ready["redis"] = pingFunc(redisPing)
	}
	if pgPing != nil {
		ready["postgres"] = pingFunc(pgPing)
	}

	handler := router.New(router.Deps{
		Auth:         handlers.NewAuth(selector, fl),
		Pipeline:     pl,
		Limiter:      limiter,
		RateLogin:    router.RateRule{Limit: cfg.Rate.Login.Limit, Window: parseWindow(cfg.Rate.Login.Window)},
		RateCallback: router.RateRule{Limit: cfg.Rate.Callback.Limit, Window: parseWindow(cfg.Rate.Callback.Window)},
		Metrics:      metrics.Register(nil),
		Ready:        handlers.Readyz(ready),
		ErrorPath:    cfg.Auth.ErrorRedirect,
	})

	return &Container{
		Cfg:      cfg,
		Registry: registry,
		Selector: selector,
		Issuer:   issuer,
		Codec:    codec,
		Cache:    cc,
		Limiter:  limiter,
		Users:    users,
		Flow:     fl,
		Pipeline: pl,
		Handler:  handler,
	}, nil
}

// Close libera las conexiones del contenedor.
func (c *Container) Close() {
	if c.Users != nil {
		_ = c.Users.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func parseWindow(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
