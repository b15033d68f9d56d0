package token_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/janus/internal/token"
)

func newCodec(t *testing.T, sessionTTL, stateTTL time.Duration) *token.Codec {
	t.Helper()
	iss, err := token.NewIssuer("janus-test", "")
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return token.NewCodec(iss, "JANUS_SESSION", sessionTTL, stateTTL)
}

func TestSessionRoundTrip(t *testing.T) {
	c := newCodec(t, 30*time.Minute, 5*time.Minute)

	raw, exp, err := c.GenerateSession("jdoe@acme.example", map[string]any{"uid": "u-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry must be in the future")
	}

	claims, err := c.ValidateSession(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "jdoe@acme.example" {
		t.Fatalf("subject round trip: got %q", sub)
	}
	if uid, _ := claims["uid"].(string); uid != "u-1" {
		t.Fatalf("extra claim round trip: got %q", uid)
	}
}

func TestSessionAndStateAudiencesDoNotCross(t *testing.T) {
	c := newCodec(t, 30*time.Minute, 5*time.Minute)

	session, _, err := c.GenerateSession("jdoe@acme.example", nil)
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}
	if _, err := c.ValidateState(session); err == nil {
		t.Fatal("a session token must never validate as state")
	}

	state, err := c.GenerateState("acme", "https://sso.acme.example", "cid", "aud")
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	if _, err := c.ValidateSession(state); err == nil {
		t.Fatal("a state token must never validate as session")
	}
}

func TestStateRoundTripAndMutationFails(t *testing.T) {
	c := newCodec(t, 30*time.Minute, 5*time.Minute)

	raw, err := c.GenerateState("acme", "https://sso.acme.example", "client-1", "portal-api")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := c.ValidateState(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ProviderID != "acme" || claims.ClientID != "client-1" || claims.Audience != "portal-api" {
		t.Fatalf("claims round trip: %+v", claims)
	}
	if claims.JTI == "" {
		t.Fatal("state must carry a jti")
	}

	// Cualquier mutación de un carácter invalida la firma.
	for _, i := range []int{0, len(raw) / 2, len(raw) - 1} {
		mutated := []byte(raw)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if _, err := c.ValidateState(string(mutated)); err == nil {
			t.Fatalf("single-character mutation at %d must fail validation", i)
		}
	}
}

func TestStateTrailingBitMutationFails(t *testing.T) {
	c := newCodec(t, 30*time.Minute, 5*time.Minute)

	raw, err := c.GenerateState("acme", "https://sso.acme.example", "client-1", "portal-api")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// El último carácter base64url de la firma solo aporta sus bits altos;
	// un flip en los bits sobrantes cambia el texto pero no los bytes
	// decodificados si el decoder es laxo. Tiene que rechazarse igual.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	mutated := []byte(raw)
	last := len(mutated) - 1
	idx := strings.IndexByte(alphabet, mutated[last])
	if idx < 0 {
		t.Fatalf("last signature char %q not in base64url alphabet", mutated[last])
	}
	mutated[last] = alphabet[idx^1]

	if string(mutated) == raw {
		t.Fatal("mutation did not change the token text")
	}
	if _, err := c.ValidateState(string(mutated)); err == nil {
		t.Fatal("trailing-bit mutation of the signature must fail validation")
	}
}

func TestRefreshSession_ExpiryStrictlyLaterSameSubject(t *testing.T) {
	c := newCodec(t, time.Hour, 5*time.Minute)

	raw, exp1, err := c.GenerateSession("jdoe@acme.example", map[string]any{"uid": "u-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	old, err := c.ValidateSession(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	refreshed, exp2, err := c.RefreshSession(old)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !exp2.After(exp1) {
		t.Fatalf("refreshed expiry %v must be strictly later than %v", exp2, exp1)
	}

	claims, err := c.ValidateSession(refreshed)
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "jdoe@acme.example" {
		t.Fatalf("refresh must keep the subject, got %q", sub)
	}
	if uid, _ := claims["uid"].(string); uid != "u-1" {
		t.Fatal("refresh must carry the non-reserved claims over")
	}
	if claims["jti"] == old["jti"] {
		t.Fatal("refresh must mint a new jti")
	}
}

func TestExtractors(t *testing.T) {
	c := newCodec(t, time.Hour, 5*time.Minute)

	header, ok := c.Extractor(token.ExtractorHeader)
	if !ok {
		t.Fatal("header extractor must be registered")
	}
	cookie, ok := c.Extractor(token.ExtractorCookie)
	if !ok {
		t.Fatal("cookie extractor must be registered")
	}

	r := httptest.NewRequest("GET", "http://portal.example/", nil)
	if got := header(r); got != "" {
		t.Fatalf("no header: want empty, got %q", got)
	}
	r.Header.Set("Authorization", "Bearer  tok-123 ")
	if got := header(r); got != "tok-123" {
		t.Fatalf("header extractor: got %q", got)
	}

	if got := cookie(r); got != "" {
		t.Fatalf("no cookie: want empty, got %q", got)
	}
	r.AddCookie(&http.Cookie{Name: "JANUS_SESSION", Value: "tok-456"})
	if got := cookie(r); got != "tok-456" {
		t.Fatalf("cookie extractor: got %q", got)
	}
}

func TestStateValueEncoding(t *testing.T) {
	v := token.EncodeStateValue("acme", "jwt.payload.sig")
	pid, jwt, ok := token.DecodeStateValue(v)
	if !ok || pid != "acme" || jwt != "jwt.payload.sig" {
		t.Fatalf("round trip failed: %q %q %v", pid, jwt, ok)
	}

	for _, bad := range []string{"", "acme", ":jwt", "acme:", "nocolon"} {
		if _, _, ok := token.DecodeStateValue(bad); ok {
			t.Errorf("DecodeStateValue(%q) must fail", bad)
		}
	}
}
