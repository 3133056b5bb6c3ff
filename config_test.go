package authcore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigNeedsSigningKey(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("defaults carry no signing key and must not validate")
	}

	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults plus a key must validate, got %v", err)
	}
}

func TestValidateRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"refresh ttl not beyond access", func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL }},
		{"unknown signing method", func(c *Config) { c.Token.SigningMethod = "rs1" }},
		{"argon memory below floor", func(c *Config) { c.Password.Memory = 1024 }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"zero rate window", func(c *Config) { c.RateLimit.API.Window = 0 }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestCloneConfigDetachesKeyMaterial(t *testing.T) {
	cfg := testConfig()
	cfg.Token.VerifyKeys = map[string][]byte{"k1": []byte("0123456789abcdef0123456789abcdef")}

	cloned := cloneConfig(cfg)
	cfg.Token.PrivateKey[0] = 'X'
	cfg.Token.VerifyKeys["k1"][0] = 'X'

	if cloned.Token.PrivateKey[0] == 'X' {
		t.Fatal("clone must detach the private key")
	}
	if cloned.Token.VerifyKeys["k1"][0] == 'X' {
		t.Fatal("clone must detach verify keys")
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "hs256.key")
	if err := os.WriteFile(keyPath, []byte("0123456789abcdef0123456789abcdef"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	yaml := strings.ReplaceAll(`
token:
  access_ttl: 5m
  refresh_ttl: 48h
  signing_method: hs256
  private_key_file: KEYPATH
  issuer: classroom-api
lockout:
  threshold: 7
  duration: 30m
rate_limit:
  auth:
    max: 3
    window: 10m
security:
  lock_on_token_reuse: true
`, "KEYPATH", keyPath)

	cfgPath := filepath.Join(dir, "authcore.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Token.AccessTTL != 5*time.Minute || cfg.Token.RefreshTTL != 48*time.Hour {
		t.Fatalf("ttls not overlaid: %v / %v", cfg.Token.AccessTTL, cfg.Token.RefreshTTL)
	}
	if cfg.Token.Issuer != "classroom-api" || string(cfg.Token.PrivateKey) != "0123456789abcdef0123456789abcdef" {
		t.Fatal("token section not overlaid")
	}
	if cfg.Lockout.Threshold != 7 || cfg.Lockout.Duration != 30*time.Minute {
		t.Fatalf("lockout not overlaid: %+v", cfg.Lockout)
	}
	if cfg.RateLimit.Auth.Max != 3 || cfg.RateLimit.Auth.Window != 10*time.Minute {
		t.Fatalf("rate rule not overlaid: %+v", cfg.RateLimit.Auth)
	}
	if !cfg.Security.LockOnTokenReuse {
		t.Fatal("security flag not overlaid")
	}

	// Untouched sections keep their defaults.
	if cfg.RateLimit.API.Max != 100 || cfg.Password.Memory != 65536 {
		t.Fatal("defaults must survive a partial overlay")
	}
}

func TestLoadConfigExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "hs256.key")
	if err := os.WriteFile(keyPath, []byte("0123456789abcdef0123456789abcdef"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	t.Setenv("AUTHCORE_TEST_KEY_FILE", keyPath)
	t.Setenv("AUTHCORE_TEST_ISSUER", "env-issuer")

	cfgPath := filepath.Join(dir, "env.yaml")
	yaml := "token:\n  signing_method: hs256\n  private_key_file: ${AUTHCORE_TEST_KEY_FILE}\n  issuer: ${AUTHCORE_TEST_ISSUER}\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token.Issuer != "env-issuer" || len(cfg.Token.PrivateKey) == 0 {
		t.Fatalf("environment references not expanded: %+v", cfg.Token)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("lockout:\n  duration: fortnight\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(cfgPath); err == nil {
		t.Fatal("expected duration parse failure")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected read failure")
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected build failure without a store")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithAccountStore(newFakeStore())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}
