package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ForwardAfrica/authcore/permission"
)

func TestRefreshRotatesSingleUse(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "rotating@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "rotating@example.com", "right password")

	second, err := e.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if second.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}

	// The rotated-out token is spent.
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}

	// The replacement chain keeps working.
	third, err := e.Refresh(context.Background(), second.RefreshToken)
	if err != nil {
		t.Fatalf("redeeming the replacement: %v", err)
	}
	if _, err := e.VerifyAccess(context.Background(), third.AccessToken); err != nil {
		t.Fatalf("access token from rotated pair: %v", err)
	}
}

func TestRefreshReuseEmitsCriticalEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(64)
	e, _, _ := newTestEngine(t, cfg, sink)
	account := mustRegister(t, e, "reused@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "reused@example.com", "right password")

	if _, err := e.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}

	events := drainEvents(e, sink)
	reuse := findEvent(events, "refresh_reuse_detected")
	if reuse == nil {
		t.Fatal("expected refresh_reuse_detected event")
	}
	if reuse.Severity != SeverityCritical || reuse.AccountID != account.ID {
		t.Fatalf("bad reuse event: %+v", reuse)
	}

	snap := e.MetricsSnapshot()
	if snap.Counters[MetricRefreshReuseDetected] != 1 {
		t.Fatalf("expected one reuse counted, got %d", snap.Counters[MetricRefreshReuseDetected])
	}
}

func TestRefreshReuseDoesNotLockByDefault(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "tolerant@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "tolerant@example.com", "right password")

	e.Refresh(context.Background(), pair.RefreshToken)
	e.Refresh(context.Background(), pair.RefreshToken)

	if _, err := e.Login(context.Background(), "tolerant@example.com", "right password"); err != nil {
		t.Fatalf("reuse without LockOnTokenReuse must not lock the account: %v", err)
	}
}

func TestRefreshReuseLocksWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Security.LockOnTokenReuse = true
	e, _, _ := newTestEngine(t, cfg, nil)
	mustRegister(t, e, "strict@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "strict@example.com", "right password")

	if _, err := e.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}

	if _, err := e.Login(context.Background(), "strict@example.com", "right password"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected account locked after reuse, got %v", err)
	}
}

func TestRefreshConcurrentRedemptionOneWinner(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Auth = RateRule{Max: 100, Window: time.Minute}
	e, _, _ := newTestEngine(t, cfg, nil)
	mustRegister(t, e, "raced@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "raced@example.com", "right password")

	const racers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			_, results[n] = e.Refresh(context.Background(), pair.RefreshToken)
		}(i)
	}
	close(start)
	wg.Wait()

	winners, reused := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrTokenReused):
			reused++
		default:
			t.Fatalf("unexpected outcome: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if reused != racers-1 {
		t.Fatalf("expected %d reuse rejections, got %d", racers-1, reused)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	cfg := testConfig()
	e, _, clock := newTestEngine(t, cfg, nil)
	mustRegister(t, e, "expired@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "expired@example.com", "right password")

	clock.Advance(cfg.Token.RefreshTTL + time.Minute)
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshMalformedToken(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	if _, err := e.Refresh(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "kinded@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "kinded@example.com", "right password")

	if _, err := e.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("an access token must not redeem, got %v", err)
	}
}

func TestRefreshInactiveAccount(t *testing.T) {
	e, store, _ := newTestEngine(t, testConfig(), nil)
	account := mustRegister(t, e, "gone@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "gone@example.com", "right password")

	if err := store.SetActive(context.Background(), account.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestRefreshCarriesCurrentRole(t *testing.T) {
	e, store, _ := newTestEngine(t, testConfig(), nil)
	account := mustRegister(t, e, "promoted@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "promoted@example.com", "right password")

	if err := store.UpdateRole(context.Background(), account.ID, permission.RoleContentManager, nil); err != nil {
		t.Fatalf("promote: %v", err)
	}

	next, err := e.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	identity, err := e.VerifyAccess(context.Background(), next.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Role != permission.RoleContentManager {
		t.Fatalf("refresh must re-resolve the role, got %s", identity.Role)
	}
	if !identity.HasPermission(permission.PermCoursesManage) {
		t.Fatal("expected promoted permission set")
	}
}
