package authcore

import (
	"context"
	"time"

	"github.com/ForwardAfrica/authcore/internal/audit"
	"github.com/ForwardAfrica/authcore/internal/limiters"
	"github.com/ForwardAfrica/authcore/internal/rate"
	"github.com/ForwardAfrica/authcore/password"
	"github.com/ForwardAfrica/authcore/token"
)

// Engine is the authentication core façade. Build one with New() and
// share it; every method is safe for concurrent use.
type Engine struct {
	config  Config
	store   AccountStore
	hasher  *password.Hasher
	tokens  *token.Manager
	guard   *rate.Guard
	lockout *limiters.LockoutPolicy
	audit   *audit.Dispatcher
	metrics *Metrics
	clock   Clock
	warn    func(format string, args ...any)
}

// Close drains the audit dispatcher. Call when retiring the Engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many security events were discarded because
// the dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// failureStoreAdapter exposes the AccountStore failure columns through
// the limiters.FailureStore contract.
type failureStoreAdapter struct {
	store AccountStore
}

func (a *failureStoreAdapter) FailureState(ctx context.Context, accountID string) (int, time.Time, error) {
	account, err := a.store.AccountByID(ctx, accountID)
	if err != nil {
		return 0, time.Time{}, err
	}
	return account.FailedAttempts, account.LastFailureAt, nil
}

func (a *failureStoreAdapter) SetFailureState(ctx context.Context, accountID string, count int, last time.Time) error {
	return a.store.UpdateFailureState(ctx, accountID, count, last)
}
