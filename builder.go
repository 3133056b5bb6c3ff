package authcore

import (
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ForwardAfrica/authcore/internal/audit"
	"github.com/ForwardAfrica/authcore/internal/limiters"
	"github.com/ForwardAfrica/authcore/internal/rate"
	"github.com/ForwardAfrica/authcore/password"
	"github.com/ForwardAfrica/authcore/token"
)

// Builder assembles an Engine. One Builder builds one Engine.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store AccountStore
	sink  EventSink
	clock Clock
	warn  func(format string, args ...any)

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccountStore sets the persistence backend. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithRedis makes the rate limiter share its windows through Redis.
// Without it the windows are process-local.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEventSink sets the destination for security events. Events are
// only dispatched when Config.Audit.Enabled is also set.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the wall clock, mainly for tests.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithWarnLogger overrides where best-effort failures (rehash updates,
// limiter resets) are reported. Defaults to the stdlib log package.
func (b *Builder) WithWarnLogger(warn func(format string, args ...any)) *Builder {
	b.warn = warn
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}

	clock := b.clock
	if clock == nil {
		clock = SystemClock{}
	}
	warn := b.warn
	if warn == nil {
		warn = log.Printf
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
		VerifyKeys:    cfg.Token.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	var counters rate.CounterStore
	if b.redis != nil {
		counters = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix)
	} else {
		counters = rate.NewMemoryStoreWithNow(clock.Now)
	}
	guard, err := rate.NewGuard(counters, cfg.RateLimit.rules())
	if err != nil {
		return nil, err
	}

	lockout, err := limiters.NewLockoutPolicy(&failureStoreAdapter{store: b.store}, limiters.LockoutConfig{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		store:   b.store,
		hasher:  hasher,
		tokens:  tokens,
		guard:   guard,
		lockout: lockout,
		clock:   clock,
		warn:    warn,
		metrics: NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink),
	}

	b.built = true

	return engine, nil
}
