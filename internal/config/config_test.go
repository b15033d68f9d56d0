package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dropDatabas3/janus/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const baseYAML = `
auth:
  default_provider: acme
providers:
  - id: acme
    client-id: cid
    client-secret: sec
    issuer: https://sso.acme.example
    authorization-uri: https://sso.acme.example/authorize
    token-uri: https://sso.acme.example/token
    user-info-uri: https://sso.acme.example/userinfo
    redirect-uri: http://localhost:8080/auth/callback
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr default: %q", cfg.Server.Addr)
	}
	if cfg.Auth.Session.CookieName != "JANUS_SESSION" || cfg.Auth.State.CookieName != "OAUTH2_STATE" {
		t.Errorf("cookie name defaults: %q %q", cfg.Auth.Session.CookieName, cfg.Auth.State.CookieName)
	}
	if cfg.Auth.ErrorRedirect != "/auth/error" {
		t.Errorf("error redirect default: %q", cfg.Auth.ErrorRedirect)
	}

	p := cfg.Providers[0]
	if p.GrantType != "authorization_code" || p.ResponseType != "code" || p.UserNameAttribute != "email" {
		t.Errorf("provider defaults: %q %q %q", p.GrantType, p.ResponseType, p.UserNameAttribute)
	}
}

func TestScopeNormalization(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want []string
	}{
		{"string", `scope: "openid profile email"`, []string{"openid", "profile", "email"}},
		{"string commas", `scope: openid,profile`, []string{"openid", "profile"}},
		{"list", "scope:\n      - openid\n      - email", []string{"openid", "email"}},
		{"map", "scope:\n      zz: true\n      aa: true\n      off: false", []string{"aa", "zz"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body := `
auth:
  default_provider: acme
providers:
  - id: acme
    client-id: cid
    client-secret: sec
    ` + c.yaml + "\n"
			cfg, err := config.Load(writeConfig(t, body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			got := cfg.Providers[0].Scope
			if len(got) != len(c.want) {
				t.Fatalf("scope: got %v want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("scope: got %v want %v", got, c.want)
				}
			}
		})
	}
}

func TestValidate_Failures(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatal(err)
	}

	cfg.Auth.DefaultProvider = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing default provider must fail")
	}

	cfg.Auth.DefaultProvider = "ghost"
	if err := cfg.Validate(); err == nil {
		t.Error("default provider not among providers must fail")
	}

	cfg.Auth.DefaultProvider = "acme"
	cfg.Storage.Driver = "postgres"
	cfg.Storage.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without dsn must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JANUS_ADDR", ":9999")
	t.Setenv("JANUS_DEFAULT_PROVIDER", "acme")
	t.Setenv("JANUS_REDIS_ADDR", "redis.internal:6379")

	cfg, err := config.Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr override: %q", cfg.Server.Addr)
	}
	if cfg.Cache.Kind != "redis" || cfg.Cache.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis override: %q %q", cfg.Cache.Kind, cfg.Cache.Redis.Addr)
	}
}

func TestTTLHelpers(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionTTL().Minutes() != 30 {
		t.Errorf("session ttl default: %v", cfg.SessionTTL())
	}
	if cfg.StateTTL().Minutes() != 5 {
		t.Errorf("state ttl default: %v", cfg.StateTTL())
	}
}
