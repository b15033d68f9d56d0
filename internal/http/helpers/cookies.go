package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieSettings son los atributos compartidos por todas las cookies que
// emite el gateway (session y state).
type CookieSettings struct {
	Domain   string
	SameSite string // "", "lax", "strict", "none"
	Secure   bool
}

// ParseSameSite convierte el string de config a http.SameSite. Default Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		// SameSite=None requiere Secure en navegadores modernos; la config
		// es responsable de la combinación.
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// BuildCookie arma una cookie HttpOnly con Path=/ y los flags de settings.
func BuildCookie(name, value string, s CookieSettings, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: ParseSameSite(s.SameSite),
	}
	if d := strings.TrimSpace(s.Domain); d != "" {
		ck.Domain = d
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

// BuildDeletionCookie devuelve una cookie que borra la original en el browser.
func BuildDeletionCookie(name string, s CookieSettings) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: ParseSameSite(s.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if d := strings.TrimSpace(s.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}
