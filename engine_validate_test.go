package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ForwardAfrica/authcore/permission"
)

func TestVerifyAccessExpired(t *testing.T) {
	cfg := testConfig()
	e, _, clock := newTestEngine(t, cfg, nil)
	mustRegister(t, e, "timedout@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "timedout@example.com", "right password")

	clock.Advance(cfg.Token.AccessTTL + time.Second)
	if _, err := e.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyAccessMalformed(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := e.VerifyAccess(context.Background(), tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid, got %v", tok, err)
		}
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "crossed@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "crossed@example.com", "right password")

	if _, err := e.VerifyAccess(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("a refresh token must not verify as access, got %v", err)
	}
}

func TestVerifyAccessIsOffline(t *testing.T) {
	e, store, _ := newTestEngine(t, testConfig(), nil)
	account := mustRegister(t, e, "detached@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "detached@example.com", "right password")

	// Deactivation does not recall outstanding access tokens; it bites
	// at the next refresh.
	if err := store.SetActive(context.Background(), account.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := e.VerifyAccess(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("verification must not consult the store, got %v", err)
	}
}

func TestVerifyAccessCountsOutcomes(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "counted@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "counted@example.com", "right password")

	e.VerifyAccess(context.Background(), pair.AccessToken)
	e.VerifyAccess(context.Background(), "garbage")

	snap := e.MetricsSnapshot()
	if snap.Counters[MetricVerifySuccess] != 1 || snap.Counters[MetricVerifyFailure] != 1 {
		t.Fatalf("bad verify counters: %+v", snap.Counters)
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricVerifyLatency] {
		observed += n
	}
	if observed != 2 {
		t.Fatalf("expected two latency observations, got %d", observed)
	}
}

func TestRequirePermission(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "gated@example.com", "right password", permission.RoleUser)
	pair := mustLogin(t, e, "gated@example.com", "right password")

	if _, err := e.RequirePermission(context.Background(), pair.AccessToken, permission.PermCoursesView); err != nil {
		t.Fatalf("held permission refused: %v", err)
	}
	if _, err := e.RequirePermission(context.Background(), pair.AccessToken, permission.PermBannersManage); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestWildcardGrantsEverything(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig(), nil)
	mustRegister(t, e, "root@example.com", "right password", permission.RoleSuperAdmin)
	pair := mustLogin(t, e, "root@example.com", "right password")

	identity, err := e.VerifyAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !identity.HasPermission(permission.PermBannersManage) || !identity.HasPermission("anything:at_all") {
		t.Fatal("wildcard permission must satisfy every check")
	}
}
