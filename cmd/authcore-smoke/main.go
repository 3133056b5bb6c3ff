// Command authcore-smoke runs the full credential lifecycle against an
// in-memory store: register, login, verify, refresh, reuse a spent
// refresh token, logout. Useful as a sanity check after configuration
// changes and as a living usage example.
//
// Run:
//
//	go run ./cmd/authcore-smoke
//	go run ./cmd/authcore-smoke -redis-addr localhost:6379
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	authcore "github.com/ForwardAfrica/authcore"
	"github.com/ForwardAfrica/authcore/permission"
	"github.com/ForwardAfrica/authcore/store"
)

func main() {
	var (
		redisAddr  = flag.String("redis-addr", "", "redis address for shared rate windows; empty keeps them in-process")
		configPath = flag.String("config", "", "optional YAML config file")
	)
	flag.Parse()

	if err := run(*redisAddr, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "smoke failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("smoke passed")
}

func run(redisAddr, configPath string) error {
	ctx := context.Background()

	var cfg authcore.Config
	if configPath != "" {
		loaded, err := authcore.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = authcore.DefaultConfig()
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		cfg.Token.PrivateKey = priv
		cfg.Token.PublicKey = pub
	}
	cfg.Audit.Enabled = true

	builder := authcore.New().
		WithConfig(cfg).
		WithAccountStore(store.NewMemoryStore()).
		WithEventSink(authcore.NewJSONWriterSink(os.Stdout))
	if redisAddr != "" {
		builder = builder.WithRedis(redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{redisAddr},
		}))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	account, err := engine.RegisterAccount(ctx, "smoke@example.com", "correct-horse-battery", permission.RoleUser)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("registered %s as %s\n", account.Identifier, account.Role)

	if _, err := engine.Login(ctx, "smoke@example.com", "wrong"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		return fmt.Errorf("wrong password: expected ErrInvalidCredentials, got %w", err)
	}

	pair, err := engine.Login(ctx, "smoke@example.com", "correct-horse-battery")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("logged in, access expires %s\n", pair.AccessExpiresAt.Format(time.RFC3339))

	identity, err := engine.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Printf("verified %s with %d permissions\n", identity.AccountID, len(identity.Permissions))

	rotated, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, authcore.ErrTokenReused) {
		return fmt.Errorf("spent token: expected ErrTokenReused, got %w", err)
	}
	fmt.Println("rotation enforced, reuse detected")

	if err := engine.Logout(ctx, account.ID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if _, err := engine.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, authcore.ErrRefreshInvalid) {
		return fmt.Errorf("after logout: expected ErrRefreshInvalid, got %w", err)
	}
	fmt.Println("logout killed the refresh chain")

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d refresh_success=%d reuse_detected=%d\n",
		snap.Counters[authcore.MetricLoginSuccess],
		snap.Counters[authcore.MetricRefreshSuccess],
		snap.Counters[authcore.MetricRefreshReuseDetected])

	return nil
}
