package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	authcore "github.com/ForwardAfrica/authcore"
	"github.com/ForwardAfrica/authcore/permission"
)

// ErrDuplicateIdentifier is returned by CreateAccount when another
// account already owns the identifier.
var ErrDuplicateIdentifier = errors.New("store: identifier already registered")

// MemoryStore is an in-memory AccountStore. All methods are safe for
// concurrent use; SwapRefreshPointer is atomic under the store mutex,
// so concurrent redemptions of one refresh token get exactly one
// winner.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*authcore.Account
	byIdentifier map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*authcore.Account),
		byIdentifier: make(map[string]string),
	}
}

var _ authcore.AccountStore = (*MemoryStore)(nil)

func cloneAccount(a *authcore.Account) *authcore.Account {
	cp := *a
	if a.Overrides != nil {
		cp.Overrides = append([]string(nil), a.Overrides...)
	}
	return &cp
}

func (s *MemoryStore) AccountByIdentifier(ctx context.Context, identifier string) (*authcore.Account, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *MemoryStore) AccountByID(ctx context.Context, id string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *authcore.Account) error {
	cp := cloneAccount(account)
	cp.Identifier = strings.ToLower(strings.TrimSpace(cp.Identifier))
	cp.Overrides = permission.NormalizeOverrideStrings(cp.Overrides)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIdentifier[cp.Identifier]; taken {
		return ErrDuplicateIdentifier
	}
	s.accounts[cp.ID] = cp
	s.byIdentifier[cp.Identifier] = cp.ID
	return nil
}

func (s *MemoryStore) UpdateFailureState(ctx context.Context, id string, count int, last time.Time) error {
	return s.update(id, func(a *authcore.Account) {
		a.FailedAttempts = count
		a.LastFailureAt = last
	})
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.update(id, func(a *authcore.Account) {
		a.PasswordHash = hash
	})
}

func (s *MemoryStore) SetRefreshPointer(ctx context.Context, id, refreshID string) error {
	return s.update(id, func(a *authcore.Account) {
		a.RefreshTokenID = refreshID
	})
}

// SwapRefreshPointer replaces the pointer only while it still equals
// expected. The compare and the write happen under one critical
// section.
func (s *MemoryStore) SwapRefreshPointer(ctx context.Context, id, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return false, authcore.ErrAccountNotFound
	}
	if account.RefreshTokenID != expected {
		return false, nil
	}
	account.RefreshTokenID = next
	account.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) ClearRefreshPointer(ctx context.Context, id string) error {
	return s.update(id, func(a *authcore.Account) {
		a.RefreshTokenID = ""
	})
}

func (s *MemoryStore) UpdateRole(ctx context.Context, id string, role authcore.Role, overrides []string) error {
	normalized := permission.NormalizeOverrideStrings(overrides)
	return s.update(id, func(a *authcore.Account) {
		a.Role = role
		a.Overrides = normalized
	})
}

func (s *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(id, func(a *authcore.Account) {
		a.Active = active
	})
}

func (s *MemoryStore) update(id string, mutate func(*authcore.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	mutate(account)
	account.UpdatedAt = time.Now().UTC()
	return nil
}
