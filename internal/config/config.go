package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is the externally supplied per-provider OAuth2 client
// configuration. Keys follow the portal's deployment convention (dashed).
type ProviderConfig struct {
	ID                string    `yaml:"id"`
	ClientID          string    `yaml:"client-id"`
	ClientSecret      string    `yaml:"client-secret"`
	Issuer            string    `yaml:"issuer"`
	Audience          string    `yaml:"audience"`
	AuthorizationURI  string    `yaml:"authorization-uri"`
	TokenURI          string    `yaml:"token-uri"`
	UserInfoURI       string    `yaml:"user-info-uri"`
	RedirectURI       string    `yaml:"redirect-uri"`
	Scope             ScopeList `yaml:"scope"`
	GrantType         string    `yaml:"grant-type"`
	ResponseType      string    `yaml:"response-type"`
	UserNameAttribute string    `yaml:"user-name-attribute"`
	DisplayName       string    `yaml:"display-name"`
	PathPatterns      []string  `yaml:"path-patterns"`
}

// ScopeList normaliza el campo scope: acepta string ("openid profile"),
// lista YAML, o mapa (keys habilitadas). Siempre termina como lista.
type ScopeList []string

func (s *ScopeList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*s = splitScopes(raw)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		out := make(ScopeList, 0, len(raw))
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	case yaml.MappingNode:
		var raw map[string]bool
		if err := node.Decode(&raw); err != nil {
			return err
		}
		out := make(ScopeList, 0, len(raw))
		for k, enabled := range raw {
			if enabled {
				out = append(out, k)
			}
		}
		sort.Strings(out)
		*s = out
		return nil
	}
	return fmt.Errorf("scope: unsupported yaml node kind %d", node.Kind)
}

func splitScopes(raw string) ScopeList {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ','
	})
	out := make(ScopeList, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`

	Auth struct {
		// DefaultProvider se usa cuando ninguna estrategia del selector opina.
		DefaultProvider string `yaml:"default_provider"`

		// ErrorRedirect es el único destino genérico de error: el browser
		// nunca ve la taxonomía de fallos, solo este redirect.
		ErrorRedirect string `yaml:"error_redirect"`

		// SuccessRedirect es el destino tras un callback exitoso.
		SuccessRedirect string `yaml:"success_redirect"`

		// CookiePaths son los paths "cookie-eligible": el bearer se lee de la
		// cookie de sesión en lugar del header Authorization.
		CookiePaths []string `yaml:"cookie_paths"`

		// Issuer es el "iss" de los tokens de sesión propios del gateway.
		Issuer string `yaml:"issuer"`

		// SigningKey es la seed Ed25519 en base64url. Si falta, se genera una
		// efímera al boot (solo dev: las sesiones no sobreviven reinicios).
		SigningKey string `yaml:"signing_key"`

		Session struct {
			CookieName string `yaml:"cookie_name"`
			Domain     string `yaml:"domain"`
			SameSite   string `yaml:"samesite"`
			Secure     bool   `yaml:"secure"`
			TTL        string `yaml:"ttl"`
		} `yaml:"session"`

		State struct {
			CookieName string `yaml:"cookie_name"`
			TTL        string `yaml:"ttl"`
			// SingleUse habilita el replay guard de states consumidos
			// (hardening opcional; requiere cache).
			SingleUse bool `yaml:"single_use"`
		} `yaml:"state"`
	} `yaml:"auth"`

	// Domains mapea Host -> provider id para la estrategia por dominio.
	Domains map[string]string `yaml:"domains"`

	// Providers es una lista (no mapa) para preservar el orden de registro:
	// el índice de path patterns resuelve "first match wins" en este orden.
	Providers []ProviderConfig `yaml:"providers"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`
	} `yaml:"rate"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | postgres
		DSN    string `yaml:"dsn"`
		// AutoProvision crea cuentas locales al primer login federado.
		AutoProvision bool `yaml:"auto_provision"`
		// Users siembra el directorio en memoria (dev/test).
		Users []SeedUser `yaml:"users"`
	} `yaml:"storage"`
}

// SeedUser is a user directory entry for the memory driver.
type SeedUser struct {
	Subject     string `yaml:"subject"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.ErrorRedirect == "" {
		c.Auth.ErrorRedirect = "/auth/error"
	}
	if c.Auth.SuccessRedirect == "" {
		c.Auth.SuccessRedirect = "/"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "janus"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "JANUS_SESSION"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "30m"
	}
	if c.Auth.State.CookieName == "" {
		c.Auth.State.CookieName = "OAUTH2_STATE"
	}
	if c.Auth.State.TTL == "" {
		c.Auth.State.TTL = "5m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "5m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 15
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Callback.Limit == 0 {
		c.Rate.Callback.Limit = 30
	}
	if c.Rate.Callback.Window == "" {
		c.Rate.Callback.Window = "1m"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}

	// per-provider defaults
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.GrantType == "" {
			p.GrantType = "authorization_code"
		}
		if p.ResponseType == "" {
			p.ResponseType = "code"
		}
		if p.UserNameAttribute == "" {
			p.UserNameAttribute = "email"
		}
	}

	c.applyEnvOverrides()
	return &c, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JANUS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("JANUS_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv("JANUS_DEFAULT_PROVIDER"); v != "" {
		c.Auth.DefaultProvider = v
	}
	if v := os.Getenv("JANUS_SIGNING_KEY"); v != "" {
		c.Auth.SigningKey = v
	}
	if v := os.Getenv("JANUS_SESSION_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.Session.Secure = b
		}
	}
	if v := os.Getenv("JANUS_REDIS_ADDR"); v != "" {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("JANUS_DSN"); v != "" {
		c.Storage.Driver = "postgres"
		c.Storage.DSN = v
	}
}

// Validate verifica la coherencia mínima para poder arrancar.
// Providers individuales mal formados NO son fatales (el registry los salta);
// acá solo se valida lo que rompería el proceso completo.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: no providers configured")
	}
	if c.Auth.DefaultProvider == "" {
		return fmt.Errorf("config: auth.default_provider is required")
	}
	found := false
	for _, p := range c.Providers {
		if p.ID == c.Auth.DefaultProvider {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: auth.default_provider %q not among providers", c.Auth.DefaultProvider)
	}
	if _, err := time.ParseDuration(c.Auth.Session.TTL); err != nil {
		return fmt.Errorf("config: auth.session.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Auth.State.TTL); err != nil {
		return fmt.Errorf("config: auth.state.ttl: %w", err)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn required for postgres driver")
	}
	return nil
}

// SessionTTL devuelve el TTL de sesión ya parseado (default 30m).
func (c *Config) SessionTTL() time.Duration {
	return parseDur(c.Auth.Session.TTL, 30*time.Minute)
}

// StateTTL devuelve el TTL del state CSRF ya parseado (default 5m).
func (c *Config) StateTTL() time.Duration {
	return parseDur(c.Auth.State.TTL, 5*time.Minute)
}

func parseDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
