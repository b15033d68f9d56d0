package util

import "strings"

// MaskIdentity enmascara un identificador de usuario antes de loguearlo.
// Emails: primera letra del local part y del dominio; otros subjects: primera
// y última letra. Nunca devuelve el valor completo.
func MaskIdentity(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	local, dom := s[:i], s[i+1:]
	if len(local) > 1 {
		local = local[:1] + "…"
	}
	if j := strings.IndexByte(dom, '.'); j > 1 {
		dom = dom[:1] + "…" + dom[j:]
	}
	return local + "@" + dom
}
