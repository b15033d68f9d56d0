package handlers

import "net/http"

// AuthError es la página terminal genérica de fallos de autenticación. Toda
// la taxonomía de errores converge acá; el detalle vive solo en los logs.
func AuthError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`<!doctype html>
<html><head><title>Sign-in failed</title></head>
<body>
<h1>Sign-in failed</h1>
<p>We could not complete your sign-in. Please try again.</p>
<p><a href="/auth/login">Retry login</a></p>
</body></html>
`))
}
