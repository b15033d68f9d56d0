package flow

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/cache"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/provider"
	"github.com/dropDatabas3/janus/internal/token"
	"go.uber.org/zap"
)

// minCodeLen: ningún provider real emite authorization codes más cortos.
const minCodeLen = 8

// replayTTL acota cuánto vive la marca de "state ya consumido". Alcanza con
// cubrir la ventana de validez del state.
const replayTTL = 10 * time.Minute

// Guard es un chequeo pre-vuelo del callback. Devuelve error para abortar.
type Guard interface {
	Name() string
	Check(ac *authn.Context) error
}

// Guards corre la secuencia corta de chequeos antes de la fase 2 del flujo.
// Cualquier eslabón que falle aborta el callback entero; el motivo puntual va
// al log, el browser solo ve el redirect genérico.
type Guards struct {
	chain []Guard
	log   *zap.Logger
}

// NewGuards arma la cadena: state → code → provider-config. Con replay no
// nulo se agrega el replay guard después de la validación de state.
func NewGuards(codec *token.Codec, registry *provider.Registry, stateCookieName string, replay cache.Client) *Guards {
	chain := []Guard{
		stateGuard{codec: codec, cookieName: stateCookieName},
	}
	if replay != nil {
		chain = append(chain, replayGuard{codec: codec, store: replay})
	}
	chain = append(chain,
		codeGuard{},
		providerGuard{registry: registry},
	)
	return &Guards{chain: chain, log: logger.Named("flow.guards")}
}

// Execute corre todos los guards en orden. False significa callback abortado.
func (g *Guards) Execute(ac *authn.Context) bool {
	for _, guard := range g.chain {
		if err := guard.Check(ac); err != nil {
			g.log.Warn("callback rejected",
				logger.String("guard", guard.Name()),
				logger.ProviderID(ac.ProviderID),
				logger.Err(err),
			)
			return false
		}
	}
	return true
}

// stateGuard compara el parámetro state del callback contra la cookie que
// este server emitió, byte a byte, y recupera el provider id del encoding
// providerId:stateJWT. Escribe el provider id en el contexto.
type stateGuard struct {
	codec      *token.Codec
	cookieName string
}

func (stateGuard) Name() string { return "state" }

func (s stateGuard) Check(ac *authn.Context) error {
	if ac.State == "" {
		return &authn.CsrfStateError{Detail: "missing state parameter"}
	}
	if ac.Request == nil {
		return &authn.CsrfStateError{Detail: "no request to read state cookie from"}
	}
	ck, err := ac.Request.Cookie(s.cookieName)
	if err != nil || ck.Value == "" {
		return &authn.CsrfStateError{Detail: "missing state cookie"}
	}
	if subtle.ConstantTimeCompare([]byte(ck.Value), []byte(ac.State)) != 1 {
		return &authn.CsrfStateError{Detail: "state/cookie mismatch"}
	}
	pid, jwt, ok := token.DecodeStateValue(ac.State)
	if !ok {
		return &authn.CsrfStateError{Detail: "malformed state encoding"}
	}
	claims, err := s.codec.ValidateState(jwt)
	if err != nil {
		return &authn.CsrfStateError{Detail: fmt.Sprintf("state token rejected: %v", err)}
	}
	if claims.ProviderID != pid {
		return &authn.CsrfStateError{Detail: "state provider id does not match signed claims"}
	}
	ac.ProviderID = pid
	ac.Issuer = claims.Issuer
	ac.ClientID = claims.ClientID
	ac.Audience = claims.Audience
	return nil
}

// replayGuard marca el jti del state como consumido. Un segundo callback con
// el mismo state ya firmado y vigente se rechaza igual.
type replayGuard struct {
	codec *token.Codec
	store cache.Client
}

func (replayGuard) Name() string { return "state_replay" }

func (r replayGuard) Check(ac *authn.Context) error {
	_, jwt, ok := token.DecodeStateValue(ac.State)
	if !ok {
		return &authn.CsrfStateError{Detail: "malformed state encoding"}
	}
	claims, err := r.codec.ValidateState(jwt)
	if err != nil {
		return &authn.CsrfStateError{Detail: fmt.Sprintf("state token rejected: %v", err)}
	}
	ctx := context.Background()
	if ac.Request != nil {
		ctx = ac.Request.Context()
	}
	fresh, err := r.store.Add(ctx, "state:"+claims.JTI, "1", replayTTL)
	if err != nil {
		// El replay guard es hardening opcional: si el cache está caído no
		// bloquea logins legítimos.
		return nil
	}
	if !fresh {
		return &authn.CsrfStateError{Detail: "state already consumed"}
	}
	return nil
}

// codeGuard rechaza codes vacíos, codes implausiblemente cortos y callbacks
// que traen un error explícito del provider.
type codeGuard struct{}

func (codeGuard) Name() string { return "code" }

func (codeGuard) Check(ac *authn.Context) error {
	if ac.Request != nil {
		if perr := ac.Request.URL.Query().Get("error"); perr != "" {
			return fmt.Errorf("provider returned error=%q", perr)
		}
	}
	if ac.Code == "" {
		return fmt.Errorf("missing authorization code")
	}
	if len(ac.Code) < minCodeLen {
		return fmt.Errorf("authorization code too short (%d chars)", len(ac.Code))
	}
	return nil
}

// providerGuard corta provider ids desconocidos y registraciones sin
// credenciales completas antes de gastar un round-trip en el exchange.
type providerGuard struct{ registry *provider.Registry }

func (providerGuard) Name() string { return "provider_config" }

func (p providerGuard) Check(ac *authn.Context) error {
	reg, ok := p.registry.Lookup(ac.ProviderID)
	if !ok {
		return &authn.ConfigurationError{ProviderID: ac.ProviderID, Detail: "unknown provider"}
	}
	if !reg.Complete() {
		return &authn.ConfigurationError{ProviderID: ac.ProviderID, Detail: "incomplete client credentials"}
	}
	return nil
}
