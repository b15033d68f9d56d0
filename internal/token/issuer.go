// Package token mints and validates the gateway's signed tokens: session
// tokens, refreshed session tokens and CSRF state values.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid_jwt")
	ErrTokenExpired  = errors.New("token_expired")
	ErrWrongIssuer   = errors.New("iss_mismatch")
	ErrWrongAudience = errors.New("aud_mismatch")
)

// Issuer firma tokens con la clave Ed25519 del gateway.
type Issuer struct {
	Iss string // "iss" de todos los tokens emitidos

	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer construye el issuer desde una seed base64url de 32 bytes.
// Con seed vacía genera una clave efímera (dev: las sesiones mueren al
// reiniciar el proceso).
func NewIssuer(iss, seedB64 string) (*Issuer, error) {
	var seed []byte
	if seedB64 == "" {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}
	} else {
		var err error
		seed, err = base64.RawURLEncoding.DecodeString(seedB64)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("signing key: want %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	// kid derivado de la pubkey, estable entre reinicios con la misma seed
	sum := sha256.Sum256(pub)
	kid := base64.RawURLEncoding.EncodeToString(sum[:8])

	return &Issuer{Iss: iss, kid: kid, priv: priv, pub: pub}, nil
}

// KID devuelve el key id derivado de la pubkey activa.
func (i *Issuer) KID() string { return i.kid }

// SignRaw firma un MapClaims arbitrario, setea header kid/typ y devuelve el
// JWT firmado.
func (i *Issuer) SignRaw(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.priv)
}

// Keyfunc devuelve un jwt.Keyfunc con la pubkey del gateway.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		return i.pub, nil
	}
}

// Parse valida firma (EdDSA), iss, aud y exp/nbf con una pequeña tolerancia.
// Devuelve las claims.
func (i *Issuer) Parse(raw, expectedAud string) (jwtv5.MapClaims, error) {
	tok, err := jwtv5.Parse(raw, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		// base64url estricto: sin esto los bits sobrantes del último
		// carácter se descartan y dos firmas textualmente distintas
		// decodifican igual.
		jwtv5.WithStrictDecoding(),
		// exp/nbf se validan a mano abajo para controlar la tolerancia
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != i.Iss {
		return nil, ErrWrongIssuer
	}
	if aud, _ := claims["aud"].(string); aud != expectedAud {
		return nil, ErrWrongAudience
	}

	now := time.Now()
	expf, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	if time.Unix(int64(expf), 0).Before(now.Add(-30 * time.Second)) {
		return nil, ErrTokenExpired
	}
	if nbff, ok := claims["nbf"].(float64); ok {
		if time.Unix(int64(nbff), 0).After(now.Add(30 * time.Second)) {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}
