package authcore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ForwardAfrica/authcore/permission"
)

/*
====================================
TEST CLOCK
====================================
*/

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

/*
====================================
TEST STORE
====================================
*/

// fakeStore is a map-backed AccountStore. The engine's own store
// package cannot be imported here without a cycle, so the tests carry
// their own minimal implementation.
type fakeStore struct {
	mu           sync.Mutex
	accounts     map[string]*Account
	byIdentifier map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[string]*Account),
		byIdentifier: make(map[string]string),
	}
}

func (s *fakeStore) clone(a *Account) *Account {
	cp := *a
	cp.Overrides = append([]string(nil), a.Overrides...)
	return &cp
}

func (s *fakeStore) AccountByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdentifier[strings.ToLower(strings.TrimSpace(identifier))]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.clone(s.accounts[id]), nil
}

func (s *fakeStore) AccountByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.clone(a), nil
}

func (s *fakeStore) CreateAccount(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.clone(account)
	cp.Overrides = permission.NormalizeOverrideStrings(cp.Overrides)
	s.accounts[cp.ID] = cp
	s.byIdentifier[cp.Identifier] = cp.ID
	return nil
}

func (s *fakeStore) UpdateFailureState(ctx context.Context, id string, count int, last time.Time) error {
	return s.update(id, func(a *Account) {
		a.FailedAttempts = count
		a.LastFailureAt = last
	})
}

func (s *fakeStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.update(id, func(a *Account) { a.PasswordHash = hash })
}

func (s *fakeStore) SetRefreshPointer(ctx context.Context, id, refreshID string) error {
	return s.update(id, func(a *Account) { a.RefreshTokenID = refreshID })
}

func (s *fakeStore) SwapRefreshPointer(ctx context.Context, id, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, ErrAccountNotFound
	}
	if a.RefreshTokenID != expected {
		return false, nil
	}
	a.RefreshTokenID = next
	return true, nil
}

func (s *fakeStore) ClearRefreshPointer(ctx context.Context, id string) error {
	return s.update(id, func(a *Account) { a.RefreshTokenID = "" })
}

func (s *fakeStore) UpdateRole(ctx context.Context, id string, role Role, overrides []string) error {
	normalized := permission.NormalizeOverrideStrings(overrides)
	return s.update(id, func(a *Account) {
		a.Role = role
		a.Overrides = normalized
	})
}

func (s *fakeStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(id, func(a *Account) { a.Active = active })
}

func (s *fakeStore) update(id string, mutate func(*Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	mutate(a)
	return nil
}

/*
====================================
ENGINE FIXTURE
====================================
*/

// testConfig keeps argon2id at the validation floor so a test run does
// not spend its time hashing.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.AccessTTL = 15 * time.Minute
	cfg.Token.RefreshTTL = 24 * time.Hour
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Lockout = LockoutConfig{Threshold: 3, Duration: 10 * time.Minute}
	cfg.RateLimit.Auth = RateRule{Max: 5, Window: time.Minute}
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, sink EventSink) (*Engine, *fakeStore, *fakeClock) {
	t.Helper()
	store := newFakeStore()
	clock := newFakeClock()

	b := New().
		WithConfig(cfg).
		WithAccountStore(store).
		WithClock(clock).
		WithWarnLogger(t.Logf)
	if sink != nil {
		b = b.WithEventSink(sink)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store, clock
}

func mustRegister(t *testing.T, e *Engine, identifier, secret string, role Role) *Account {
	t.Helper()
	account, err := e.RegisterAccount(context.Background(), identifier, secret, role)
	if err != nil {
		t.Fatalf("register %s: %v", identifier, err)
	}
	return account
}

func mustLogin(t *testing.T, e *Engine, identifier, secret string) *TokenPair {
	t.Helper()
	pair, err := e.Login(context.Background(), identifier, secret)
	if err != nil {
		t.Fatalf("login %s: %v", identifier, err)
	}
	return pair
}

// drainEvents closes the engine so the dispatcher flushes, then reads
// everything the sink saw.
func drainEvents(e *Engine, sink *ChannelSink) []SecurityEvent {
	e.Close()
	var events []SecurityEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func findEvent(events []SecurityEvent, kind string) *SecurityEvent {
	for i := range events {
		if events[i].Kind == kind {
			return &events[i]
		}
	}
	return nil
}
