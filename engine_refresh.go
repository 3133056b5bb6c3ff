package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ForwardAfrica/authcore/internal/rate"
	"github.com/ForwardAfrica/authcore/permission"
	"github.com/ForwardAfrica/authcore/token"
)

// Refresh redeems a refresh token for a fresh pair. Rotation is
// single-use: the presented token's id must still be the account's
// stored pointer, and the swap to the new id happens as one atomic
// compare-and-swap. Two concurrent redemptions of the same token
// resolve to exactly one winner; the loser gets ErrTokenReused.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	now := e.clock.Now()

	claims, err := e.tokens.ParseRefresh(refreshToken, now)
	if err != nil {
		kind := ErrTokenInvalid
		if errors.Is(err, token.ErrExpired) {
			kind = ErrTokenExpired
		}
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, "", false, kind, map[string]string{
			"reason": "parse_failed",
		})
		return nil, kind
	}

	decision, err := e.guard.Allow(ctx, claims.Subject, endpointRefresh, rate.ClassAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !decision.Permitted {
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshRateLimited, SeverityWarn, claims.Subject, false, ErrRateLimited, nil)
		return nil, &RetryAfterError{Err: ErrRateLimited, RetryAfter: decision.RetryAfter}
	}

	account, err := e.store.AccountByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			e.metricInc(MetricRefreshFailure)
			e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, claims.Subject, false, ErrRefreshInvalid, map[string]string{
				"reason": "unknown_account",
			})
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !account.Active {
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, account.ID, false, ErrAccountInactive, map[string]string{
			"reason": "account_inactive",
		})
		return nil, ErrAccountInactive
	}
	if e.lockout.IsLocked(account.FailedAttempts, account.LastFailureAt, now) {
		retry := e.lockout.Remaining(account.FailedAttempts, account.LastFailureAt, now)
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, account.ID, false, ErrAccountLocked, map[string]string{
			"reason": "account_locked",
		})
		return nil, &RetryAfterError{Err: ErrAccountLocked, RetryAfter: retry}
	}

	perms := permission.Resolve(account.Role, account.Overrides)
	pair, err := e.tokens.Issue(account.ID, string(account.Role), perms, now)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, account.ID, false, err, map[string]string{
			"reason": "issue_failed",
		})
		return nil, err
	}

	swapped, err := e.store.SwapRefreshPointer(ctx, account.ID, claims.ID, pair.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !swapped {
		return nil, e.refreshRejected(ctx, account, claims.ID)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitEvent(ctx, eventRefreshSuccess, SeverityInfo, account.ID, true, nil, nil)

	return &TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// refreshRejected classifies a lost pointer swap. An account with no
// pointer at the time it was loaded had logged out: benign. A pointer
// that moved on means the presented token was already spent, which
// reads as theft.
func (e *Engine) refreshRejected(ctx context.Context, account *Account, presentedID string) error {
	if account.RefreshTokenID == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitEvent(ctx, eventRefreshInvalid, SeverityWarn, account.ID, false, ErrRefreshInvalid, map[string]string{
			"reason": "no_active_refresh",
		})
		return ErrRefreshInvalid
	}

	e.metricInc(MetricRefreshReuseDetected)
	e.emitEvent(ctx, eventRefreshReuse, SeverityCritical, account.ID, false, ErrTokenReused, map[string]string{
		"presented_id": presentedID,
	})

	if e.config.Security.LockOnTokenReuse {
		if err := e.store.UpdateFailureState(ctx, account.ID, e.lockout.Threshold(), e.clock.Now()); err != nil {
			e.warn("authcore: lock-on-reuse failure state update failed: %v", err)
		} else {
			e.metricInc(MetricAccountLocked)
			e.emitEvent(ctx, eventAccountLocked, SeverityCritical, account.ID, false, ErrAccountLocked, map[string]string{
				"reason": "refresh_reuse",
			})
		}
	}

	return ErrTokenReused
}
