package authcore

import (
	"errors"
	"time"

	"github.com/ForwardAfrica/authcore/internal/rate"
)

// Config holds every tuning knob of the engine. Configure once before
// Build; the engine clones it and never reads the original again.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures signing and lifetimes for the token pair.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig bounds consecutive credential failures per account.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateRule is one fixed-window budget.
type RateRule struct {
	Max    int
	Window time.Duration
}

// RateLimitConfig sets one rule per traffic class. RedisPrefix only
// matters when the engine is built with a Redis counter store.
type RateLimitConfig struct {
	Auth        RateRule
	API         RateRule
	Upload      RateRule
	Admin       RateRule
	RedisPrefix string
}

func (c RateLimitConfig) rules() map[rate.Class]rate.Rule {
	return map[rate.Class]rate.Rule{
		rate.ClassAuth:   {Max: c.Auth.Max, Window: c.Auth.Window},
		rate.ClassAPI:    {Max: c.API.Max, Window: c.API.Window},
		rate.ClassUpload: {Max: c.Upload.Max, Window: c.Upload.Window},
		rate.ClassAdmin:  {Max: c.Admin.Max, Window: c.Admin.Window},
	}
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the security event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds hardening switches.
type SecurityConfig struct {
	// LockOnTokenReuse engages the account lockout immediately when a
	// spent refresh token is redeemed again, on the theory that the
	// token was stolen.
	LockOnTokenReuse bool
	// DummyVerifyOnUnknown runs a full argon2id verification against a
	// throwaway hash when the identifier does not resolve, so timing
	// does not reveal account existence.
	DummyVerifyOnUnknown bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. It validates once
// signing key material is added.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Auth:        RateRule{Max: 10, Window: 15 * time.Minute},
			API:         RateRule{Max: 100, Window: time.Minute},
			Upload:      RateRule{Max: 20, Window: time.Hour},
			Admin:       RateRule{Max: 30, Window: time.Minute},
			RedisPrefix: "authcore:rate",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Security: SecurityConfig{
			LockOnTokenReuse:     false,
			DummyVerifyOnUnknown: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if len(cfg.Token.VerifyKeys) > 0 {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must exceed AccessTTL")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported token signing method")
	}
	if len(c.Token.PrivateKey) == 0 {
		return errors.New(c.Token.SigningMethod + " requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 && len(c.Token.VerifyKeys) == 0 {
		return errors.New("ed25519 requires PublicKey or VerifyKeys")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Rate limits
	for _, rule := range []RateRule{c.RateLimit.Auth, c.RateLimit.API, c.RateLimit.Upload, c.RateLimit.Admin} {
		if rule.Max <= 0 || rule.Window <= 0 {
			return errors.New("every rate rule needs Max > 0 and Window > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
