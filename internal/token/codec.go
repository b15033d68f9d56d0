package token

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiences internas: separan tokens de sesión de states CSRF para que uno
// jamás valide como el otro.
const (
	audSession = "janus-session"
	audState   = "oauth2-state"
)

// Extractor names selectable by path convention.
const (
	ExtractorHeader = "header"
	ExtractorCookie = "cookie"
)

// Extractor pulls a bearer token out of a request. Empty string means absent.
type Extractor func(r *http.Request) string

// StateClaims is what a CSRF state value carries.
type StateClaims struct {
	ProviderID string
	Issuer     string
	ClientID   string
	Audience   string
	JTI        string
}

// Codec agrupa los extractors/generators/validators nombrados del gateway.
type Codec struct {
	issuer     *Issuer
	sessionTTL time.Duration
	stateTTL   time.Duration

	extractors map[string]Extractor
}

func NewCodec(issuer *Issuer, sessionCookieName string, sessionTTL, stateTTL time.Duration) *Codec {
	c := &Codec{
		issuer:     issuer,
		sessionTTL: sessionTTL,
		stateTTL:   stateTTL,
	}
	c.extractors = map[string]Extractor{
		ExtractorHeader: HeaderExtractor(),
		ExtractorCookie: CookieExtractor(sessionCookieName),
	}
	return c
}

// Extractor devuelve el extractor registrado bajo ese nombre.
func (c *Codec) Extractor(name string) (Extractor, bool) {
	e, ok := c.extractors[name]
	return e, ok
}

// HeaderExtractor lee Authorization: Bearer <token>.
func HeaderExtractor() Extractor {
	return func(r *http.Request) string {
		ah := strings.TrimSpace(r.Header.Get("Authorization"))
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			return ""
		}
		return strings.TrimSpace(ah[len("Bearer "):])
	}
}

// CookieExtractor lee el token desde la cookie de sesión.
func CookieExtractor(cookieName string) Extractor {
	return func(r *http.Request) string {
		ck, err := r.Cookie(cookieName)
		if err != nil || ck == nil {
			return ""
		}
		return strings.TrimSpace(ck.Value)
	}
}

// GenerateSession emite un token de sesión para un subject.
func (c *Codec) GenerateSession(subject string, extra map[string]any) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("blank subject")
	}
	now := time.Now().UTC()
	exp := now.Add(c.sessionTTL)
	claims := jwtv5.MapClaims{
		"iss": c.issuer.Iss,
		"aud": audSession,
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := c.issuer.SignRaw(claims)
	return signed, exp, err
}

// RefreshSession emite un token nuevo con el mismo subject (y claims extra)
// que el viejo, iat nuevo y expiry estrictamente posterior.
func (c *Codec) RefreshSession(old jwtv5.MapClaims) (string, time.Time, error) {
	sub, _ := old["sub"].(string)
	if sub == "" {
		return "", time.Time{}, errors.New("old token has no subject")
	}
	now := time.Now().UTC()
	exp := now.Add(c.sessionTTL)
	if oldExp, ok := old["exp"].(float64); ok {
		// invariante: el exp nuevo es estrictamente posterior al viejo,
		// comparado en segundos (la granularidad del claim exp).
		if prev := time.Unix(int64(oldExp), 0); !exp.Truncate(time.Second).After(prev) {
			exp = prev.Add(time.Second)
		}
	}
	claims := jwtv5.MapClaims{
		"iss": c.issuer.Iss,
		"aud": audSession,
		"sub": sub,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range old {
		switch k {
		case "iss", "aud", "sub", "iat", "nbf", "exp", "jti":
		default:
			claims[k] = v
		}
	}
	signed, err := c.issuer.SignRaw(claims)
	return signed, exp, err
}

// GenerateState emite el state CSRF firmado con provider id, issuer,
// client id y audience adentro.
func (c *Codec) GenerateState(providerID, issuer, clientID, audience string) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss": c.issuer.Iss,
		"aud": audState,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(c.stateTTL).Unix(),
		"jti": uuid.NewString(),
		"pid": providerID,
		"pis": issuer,
		"cid": clientID,
		"paa": audience,
	}
	return c.issuer.SignRaw(claims)
}

// EncodeStateValue arma el valor completo que viaja en la cookie de state y
// en el parámetro ?state=: "providerID:stateJWT". Ambos lados deben coincidir
// byte a byte en el callback.
func EncodeStateValue(providerID, stateJWT string) string {
	return providerID + ":" + stateJWT
}

// DecodeStateValue separa providerID y stateJWT en el primer ':'.
func DecodeStateValue(value string) (providerID, stateJWT string, ok bool) {
	i := strings.IndexByte(value, ':')
	if i <= 0 || i == len(value)-1 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}

// ValidateSession valida un token de sesión y devuelve sus claims.
func (c *Codec) ValidateSession(raw string) (jwtv5.MapClaims, error) {
	return c.issuer.Parse(raw, audSession)
}

// ValidateState valida un state CSRF y devuelve lo que transporta.
func (c *Codec) ValidateState(raw string) (StateClaims, error) {
	claims, err := c.issuer.Parse(raw, audState)
	if err != nil {
		return StateClaims{}, err
	}
	out := StateClaims{}
	out.ProviderID, _ = claims["pid"].(string)
	out.Issuer, _ = claims["pis"].(string)
	out.ClientID, _ = claims["cid"].(string)
	out.Audience, _ = claims["paa"].(string)
	out.JTI, _ = claims["jti"].(string)
	if out.ProviderID == "" {
		return StateClaims{}, ErrInvalidToken
	}
	return out, nil
}
