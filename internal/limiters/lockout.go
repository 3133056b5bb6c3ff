package limiters

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

const lockoutStripes = 64

// ErrLockoutUnavailable indicates the failure-state backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// LockoutConfig holds the lockout thresholds.
type LockoutConfig struct {
	// Threshold is the number of consecutive failures that engages the
	// lock. The failure that reaches the threshold is still answered as
	// an ordinary credential failure; the lock applies from the next
	// attempt on.
	Threshold int
	// Duration is how long the lock holds, measured from the last
	// failure.
	Duration time.Duration
}

// FailureStore persists per-account failure state.
type FailureStore interface {
	FailureState(ctx context.Context, accountID string) (count int, last time.Time, err error)
	SetFailureState(ctx context.Context, accountID string, count int, last time.Time) error
}

// LockoutPolicy applies LockoutConfig over a FailureStore.
// Safe for concurrent use.
type LockoutPolicy struct {
	store   FailureStore
	config  LockoutConfig
	stripes [lockoutStripes]sync.Mutex
}

// NewLockoutPolicy validates cfg and returns a ready policy.
func NewLockoutPolicy(store FailureStore, cfg LockoutConfig) (*LockoutPolicy, error) {
	if store == nil {
		return nil, errors.New("nil failure store")
	}
	if cfg.Threshold <= 0 {
		return nil, errors.New("lockout threshold must be positive")
	}
	if cfg.Duration <= 0 {
		return nil, errors.New("lockout duration must be positive")
	}
	return &LockoutPolicy{store: store, config: cfg}, nil
}

// IsLocked reports whether the given failure state means the account is
// locked as of now. The boundary is exact: once the full duration has
// elapsed since the last failure the account is open again.
func (p *LockoutPolicy) IsLocked(count int, last time.Time, now time.Time) bool {
	if count < p.config.Threshold {
		return false
	}
	return now.Sub(last) < p.config.Duration
}

// Remaining returns how much of the lock window is left for the given
// state, zero if not locked.
func (p *LockoutPolicy) Remaining(count int, last time.Time, now time.Time) time.Duration {
	if !p.IsLocked(count, last, now) {
		return 0
	}
	return p.config.Duration - now.Sub(last)
}

// RecordFailure bumps the account's consecutive-failure count and stamps
// now as the last failure. A failure arriving after the window has fully
// elapsed starts a fresh count at 1.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, accountID string, now time.Time) (int, error) {
	stripe := p.stripe(accountID)
	stripe.Lock()
	defer stripe.Unlock()

	count, last, err := p.store.FailureState(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count > 0 && now.Sub(last) >= p.config.Duration {
		count = 0
	}
	count++

	if err := p.store.SetFailureState(ctx, accountID, count, now); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return count, nil
}

// RecordSuccess clears the account's failure state after a successful
// credential check.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, accountID string) error {
	stripe := p.stripe(accountID)
	stripe.Lock()
	defer stripe.Unlock()

	if err := p.store.SetFailureState(ctx, accountID, 0, time.Time{}); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Threshold exposes the configured threshold for callers that report it.
func (p *LockoutPolicy) Threshold() int {
	return p.config.Threshold
}

func (p *LockoutPolicy) stripe(accountID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return &p.stripes[h.Sum32()%lockoutStripes]
}
