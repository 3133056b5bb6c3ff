package authcore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML schema. Durations are strings in Go duration
// syntax ("15m", "168h"). Signing keys are referenced by file path, not
// inlined. Zero values mean "keep the default".
type fileConfig struct {
	Token struct {
		AccessTTL      string `yaml:"access_ttl"`
		RefreshTTL     string `yaml:"refresh_ttl"`
		SigningMethod  string `yaml:"signing_method"`
		PrivateKeyFile string `yaml:"private_key_file"`
		PublicKeyFile  string `yaml:"public_key_file"`
		Issuer         string `yaml:"issuer"`
		Leeway         string `yaml:"leeway"`
		KeyID          string `yaml:"key_id"`
	} `yaml:"token"`
	Password struct {
		Memory         uint32 `yaml:"memory_kb"`
		Time           uint32 `yaml:"time"`
		Parallelism    uint8  `yaml:"parallelism"`
		UpgradeOnLogin *bool  `yaml:"upgrade_on_login"`
	} `yaml:"password"`
	Lockout struct {
		Threshold int    `yaml:"threshold"`
		Duration  string `yaml:"duration"`
	} `yaml:"lockout"`
	RateLimit struct {
		Auth        fileRateRule `yaml:"auth"`
		API         fileRateRule `yaml:"api"`
		Upload      fileRateRule `yaml:"upload"`
		Admin       fileRateRule `yaml:"admin"`
		RedisPrefix string       `yaml:"redis_prefix"`
	} `yaml:"rate_limit"`
	Audit struct {
		Enabled    bool  `yaml:"enabled"`
		BufferSize int   `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Security struct {
		LockOnTokenReuse     bool  `yaml:"lock_on_token_reuse"`
		DummyVerifyOnUnknown *bool `yaml:"dummy_verify_on_unknown"`
	} `yaml:"security"`
}

type fileRateRule struct {
	Max    int    `yaml:"max"`
	Window string `yaml:"window"`
}

// LoadConfig reads a YAML file and overlays it on the defaults.
// ${VAR} references in the file expand from the environment before
// parsing. The result is validated; key files named in the YAML are
// read here.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyFileConfig(&cfg, &file); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, file *fileConfig) error {
	if err := overlayDuration(&cfg.Token.AccessTTL, file.Token.AccessTTL, "token.access_ttl"); err != nil {
		return err
	}
	if err := overlayDuration(&cfg.Token.RefreshTTL, file.Token.RefreshTTL, "token.refresh_ttl"); err != nil {
		return err
	}
	if err := overlayDuration(&cfg.Token.Leeway, file.Token.Leeway, "token.leeway"); err != nil {
		return err
	}
	if file.Token.SigningMethod != "" {
		cfg.Token.SigningMethod = file.Token.SigningMethod
	}
	if file.Token.Issuer != "" {
		cfg.Token.Issuer = file.Token.Issuer
	}
	if file.Token.KeyID != "" {
		cfg.Token.KeyID = file.Token.KeyID
	}
	if file.Token.PrivateKeyFile != "" {
		key, err := os.ReadFile(file.Token.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("reading private key file: %w", err)
		}
		cfg.Token.PrivateKey = key
	}
	if file.Token.PublicKeyFile != "" {
		key, err := os.ReadFile(file.Token.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("reading public key file: %w", err)
		}
		cfg.Token.PublicKey = key
	}

	if file.Password.Memory > 0 {
		cfg.Password.Memory = file.Password.Memory
	}
	if file.Password.Time > 0 {
		cfg.Password.Time = file.Password.Time
	}
	if file.Password.Parallelism > 0 {
		cfg.Password.Parallelism = file.Password.Parallelism
	}
	if file.Password.UpgradeOnLogin != nil {
		cfg.Password.UpgradeOnLogin = *file.Password.UpgradeOnLogin
	}

	if file.Lockout.Threshold > 0 {
		cfg.Lockout.Threshold = file.Lockout.Threshold
	}
	if err := overlayDuration(&cfg.Lockout.Duration, file.Lockout.Duration, "lockout.duration"); err != nil {
		return err
	}

	rules := []struct {
		dst  *RateRule
		src  fileRateRule
		name string
	}{
		{&cfg.RateLimit.Auth, file.RateLimit.Auth, "rate_limit.auth"},
		{&cfg.RateLimit.API, file.RateLimit.API, "rate_limit.api"},
		{&cfg.RateLimit.Upload, file.RateLimit.Upload, "rate_limit.upload"},
		{&cfg.RateLimit.Admin, file.RateLimit.Admin, "rate_limit.admin"},
	}
	for _, r := range rules {
		if r.src.Max > 0 {
			r.dst.Max = r.src.Max
		}
		if err := overlayDuration(&r.dst.Window, r.src.Window, r.name+".window"); err != nil {
			return err
		}
	}
	if file.RateLimit.RedisPrefix != "" {
		cfg.RateLimit.RedisPrefix = file.RateLimit.RedisPrefix
	}

	cfg.Audit.Enabled = file.Audit.Enabled
	if file.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = file.Audit.BufferSize
	}
	if file.Audit.DropIfFull != nil {
		cfg.Audit.DropIfFull = *file.Audit.DropIfFull
	}
	if file.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *file.Metrics.Enabled
	}

	cfg.Security.LockOnTokenReuse = file.Security.LockOnTokenReuse
	if file.Security.DummyVerifyOnUnknown != nil {
		cfg.Security.DummyVerifyOnUnknown = *file.Security.DummyVerifyOnUnknown
	}

	return nil
}

func overlayDuration(dst *time.Duration, raw, name string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}
