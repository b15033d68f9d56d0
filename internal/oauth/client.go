// Package oauth implements the outbound OAuth 2.0 authorization-code calls
// against a registered identity provider: authorization URL construction,
// code exchange and user-info fetch. Providers are configuration, not code:
// one client serves them all.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/authn"
	"github.com/dropDatabas3/janus/internal/provider"
)

const defaultTimeout = 10 * time.Second

// maxErrBody limita cuánto body del provider se guarda para logs.
const maxErrBody = 2048

// TokenResponse is the provider's token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	IDToken     string `json:"id_token,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// Exchanger is what the callback flow needs from this package. Tests stub it
// to prove the guard chain never lets a bad callback reach the exchange.
type Exchanger interface {
	ExchangeCode(ctx context.Context, reg provider.Registration, code string) (*TokenResponse, error)
	FetchUserInfo(ctx context.Context, reg provider.Registration, accessToken string) (map[string]any, error)
}

// Client habla con los endpoints del identity provider con timeouts acotados.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// AuthorizeURL construye la URL de autorización del provider con el state.
func AuthorizeURL(reg provider.Registration, state string) (string, error) {
	u, err := url.Parse(reg.AuthorizationURI)
	if err != nil {
		return "", fmt.Errorf("authorization uri: %w", err)
	}
	q := u.Query()
	q.Set("response_type", reg.ResponseType)
	q.Set("client_id", reg.ClientID)
	q.Set("redirect_uri", reg.RedirectURI)
	if reg.Audience != "" {
		q.Set("audience", reg.Audience)
	}
	if len(reg.Scopes) > 0 {
		q.Set("scope", strings.Join(reg.Scopes, " "))
	}
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode intercambia el authorization code por un access token.
// Cualquier fallo (respuesta no-2xx, error de red, timeout) es terminal para
// el request y se reporta como TokenExchangeError.
func (c *Client) ExchangeCode(ctx context.Context, reg provider.Registration, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", reg.GrantType)
	form.Set("code", code)
	form.Set("client_id", reg.ClientID)
	form.Set("client_secret", reg.ClientSecret)
	form.Set("redirect_uri", reg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reg.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &authn.TokenExchangeError{ProviderID: reg.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &authn.TokenExchangeError{ProviderID: reg.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &authn.TokenExchangeError{
			ProviderID: reg.ID,
			Status:     resp.StatusCode,
			Body:       string(body),
		}
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &authn.TokenExchangeError{ProviderID: reg.ID, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.Error != "" {
		return nil, &authn.TokenExchangeError{
			ProviderID: reg.ID,
			Body:       tr.Error + " " + tr.ErrorDesc,
			Err:        fmt.Errorf("provider error: %s", tr.Error),
		}
	}
	if tr.AccessToken == "" {
		return nil, &authn.TokenExchangeError{ProviderID: reg.ID, Err: fmt.Errorf("no access_token in response")}
	}
	return &tr, nil
}

// FetchUserInfo trae el perfil del usuario con el access token.
func (c *Client) FetchUserInfo(ctx context.Context, reg provider.Registration, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reg.UserInfoURI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, fmt.Errorf("userinfo http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return info, nil
}
