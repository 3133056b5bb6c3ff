package store

import (
	"context"
	"sync"
	"testing"

	authcore "github.com/ForwardAfrica/authcore"
)

func seedAccount(t *testing.T, s *MemoryStore, id, identifier string) {
	t.Helper()
	err := s.CreateAccount(context.Background(), &authcore.Account{
		ID:         id,
		Identifier: identifier,
		Role:       "user",
		Active:     true,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestMemoryStoreLookupNormalizesIdentifier(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "  User@Example.COM ")

	got, err := s.AccountByIdentifier(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "a1" {
		t.Fatalf("expected a1, got %s", got.ID)
	}
	if got.Identifier != "user@example.com" {
		t.Fatalf("identifier not normalized at write edge: %q", got.Identifier)
	}
}

func TestMemoryStoreUnknownAccount(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.AccountByID(context.Background(), "missing"); err != authcore.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := s.ClearRefreshPointer(context.Background(), "missing"); err != authcore.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStoreDuplicateIdentifier(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "dup@example.com")
	err := s.CreateAccount(context.Background(), &authcore.Account{ID: "a2", Identifier: "DUP@example.com"})
	if err != ErrDuplicateIdentifier {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestMemoryStoreNormalizesOverrides(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "u@example.com")

	if err := s.UpdateRole(context.Background(), "a1", "moderator", []string{" Reports:Read ", "reports:read", "all"}); err != nil {
		t.Fatalf("update role: %v", err)
	}
	got, _ := s.AccountByID(context.Background(), "a1")
	if len(got.Overrides) != 2 {
		t.Fatalf("expected deduped overrides, got %v", got.Overrides)
	}
	seen := map[string]bool{}
	for _, o := range got.Overrides {
		seen[o] = true
	}
	if !seen["reports:read"] || !seen["*"] {
		t.Fatalf("unexpected override set: %v", got.Overrides)
	}
}

func TestMemoryStoreReadsReturnCopies(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "u@example.com")

	got, _ := s.AccountByID(context.Background(), "a1")
	got.FailedAttempts = 99

	again, _ := s.AccountByID(context.Background(), "a1")
	if again.FailedAttempts != 0 {
		t.Fatal("mutating a returned account leaked into the store")
	}
}

func TestMemoryStoreSwapRefreshPointer(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "u@example.com")

	if err := s.SetRefreshPointer(context.Background(), "a1", "jti-1"); err != nil {
		t.Fatalf("set pointer: %v", err)
	}

	swapped, err := s.SwapRefreshPointer(context.Background(), "a1", "jti-1", "jti-2")
	if err != nil || !swapped {
		t.Fatalf("expected swap to win, got swapped=%v err=%v", swapped, err)
	}
	swapped, err = s.SwapRefreshPointer(context.Background(), "a1", "jti-1", "jti-3")
	if err != nil || swapped {
		t.Fatalf("expected stale swap to lose, got swapped=%v err=%v", swapped, err)
	}
	got, _ := s.AccountByID(context.Background(), "a1")
	if got.RefreshTokenID != "jti-2" {
		t.Fatalf("pointer clobbered by losing swap: %s", got.RefreshTokenID)
	}
}

func TestMemoryStoreSwapExactlyOneWinner(t *testing.T) {
	s := NewMemoryStore()
	seedAccount(t, s, "a1", "u@example.com")
	if err := s.SetRefreshPointer(context.Background(), "a1", "jti-old"); err != nil {
		t.Fatalf("set pointer: %v", err)
	}

	const racers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	var winners sync.Map
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			swapped, err := s.SwapRefreshPointer(context.Background(), "a1", "jti-old", "jti-new")
			if err != nil {
				t.Errorf("swap: %v", err)
				return
			}
			if swapped {
				winners.Store(n, true)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	count := 0
	winners.Range(func(_, _ any) bool { count++; return true })
	if count != 1 {
		t.Fatalf("expected exactly one winning swap, got %d", count)
	}
}
