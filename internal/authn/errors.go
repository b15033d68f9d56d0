package authn

import (
	"errors"
	"fmt"
)

// Error taxonomy. All of these converge on the same generic error redirect for
// the browser; the distinction only exists so operators can tell a deployment
// defect from a forged callback from an unknown user in the logs.

// ConfigurationError indicates a missing or incomplete provider registration.
// Not retried; logged at error level since it means a deployment defect.
type ConfigurationError struct {
	ProviderID string
	Detail     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q misconfigured: %s", e.ProviderID, e.Detail)
}

// CsrfStateError indicates a missing, malformed or mismatched state value.
// Treated as a forged or expired callback; logged at warning level.
type CsrfStateError struct {
	Detail string
}

func (e *CsrfStateError) Error() string {
	return "csrf state rejected: " + e.Detail
}

// TokenExchangeError indicates the provider's token endpoint returned a
// non-success response, or the call failed (network error, timeout).
type TokenExchangeError struct {
	ProviderID string
	Status     int    // 0 when the call never completed
	Body       string // truncated provider response, for logs only
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange with %q failed: %v", e.ProviderID, e.Err)
	}
	return fmt.Sprintf("token exchange with %q failed: http %d", e.ProviderID, e.Status)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// UserResolutionError indicates the exchange succeeded but no local user
// matches the federated identity. Distinct from TokenExchangeError so logs can
// separate "provider problem" from "unknown user".
type UserResolutionError struct {
	ProviderID string
	Subject    string // masked before logging
}

func (e *UserResolutionError) Error() string {
	return fmt.Sprintf("no local user for identity from %q", e.ProviderID)
}

// ErrSessionToken is the expected trigger for re-authentication on an
// ordinary request: expired, invalid or absent bearer token. It results in a
// redirect, never in a fault.
var ErrSessionToken = errors.New("session token missing or invalid")
