package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ForwardAfrica/authcore/internal/rate"
	"github.com/ForwardAfrica/authcore/permission"
)

const (
	endpointLogin   = "login"
	endpointRefresh = "refresh"
)

// Login runs the full gate sequence for one credential presentation:
// rate limit, then lockout, then credential check. The first failing
// gate wins and each denial is a distinct error kind. On success the
// failure counter resets and a fresh token pair is issued, with the
// refresh rotation pointer stored on the account.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	now := e.clock.Now()

	decision, err := e.guard.Allow(ctx, identifier, endpointLogin, rate.ClassAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !decision.Permitted {
		e.metricInc(MetricLoginRateLimited)
		e.emitEvent(ctx, eventLoginRateLimited, SeverityWarn, "", false, ErrRateLimited, map[string]string{
			"identifier": identifier,
		})
		return nil, &RetryAfterError{Err: ErrRateLimited, RetryAfter: decision.RetryAfter}
	}

	if secret == "" {
		e.metricInc(MetricLoginFailure)
		e.emitEvent(ctx, eventLoginFailure, SeverityWarn, "", false, ErrInvalidCredentials, map[string]string{
			"identifier": identifier,
			"reason":     "empty_secret",
		})
		return nil, ErrInvalidCredentials
	}

	account, err := e.store.AccountByIdentifier(ctx, identifier)
	if err != nil {
		if isNotFound(err) {
			// Burn the same hashing cost an existing account would, so
			// response timing does not reveal which identifiers exist.
			if e.config.Security.DummyVerifyOnUnknown {
				e.hasher.VerifyDummy(secret)
			}
			e.metricInc(MetricLoginFailure)
			e.emitEvent(ctx, eventLoginFailure, SeverityWarn, "", false, ErrInvalidCredentials, map[string]string{
				"identifier": identifier,
				"reason":     "unknown_identifier",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.lockout.IsLocked(account.FailedAttempts, account.LastFailureAt, now) {
		retry := e.lockout.Remaining(account.FailedAttempts, account.LastFailureAt, now)
		e.metricInc(MetricLoginLocked)
		e.emitEvent(ctx, eventLoginLocked, SeverityWarn, account.ID, false, ErrAccountLocked, map[string]string{
			"identifier": identifier,
		})
		return nil, &RetryAfterError{Err: ErrAccountLocked, RetryAfter: retry}
	}

	ok, verifyErr := e.hasher.Verify(secret, account.PasswordHash)
	if verifyErr != nil || !ok {
		count, recErr := e.lockout.RecordFailure(ctx, account.ID, now)
		if recErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, recErr)
		}
		e.metricInc(MetricLoginFailure)
		e.emitEvent(ctx, eventLoginFailure, SeverityWarn, account.ID, false, ErrInvalidCredentials, map[string]string{
			"identifier": identifier,
			"reason":     "password_mismatch",
			"attempt":    fmt.Sprintf("%d", count),
		})
		if count == e.lockout.Threshold() {
			e.metricInc(MetricAccountLocked)
			e.emitEvent(ctx, eventAccountLocked, SeverityCritical, account.ID, false, ErrAccountLocked, map[string]string{
				"identifier": identifier,
			})
		}
		return nil, ErrInvalidCredentials
	}

	if !account.Active {
		e.metricInc(MetricLoginFailure)
		e.emitEvent(ctx, eventLoginFailure, SeverityWarn, account.ID, false, ErrAccountInactive, map[string]string{
			"identifier": identifier,
			"reason":     "account_inactive",
		})
		return nil, ErrAccountInactive
	}

	if account.FailedAttempts > 0 {
		if err := e.lockout.RecordSuccess(ctx, account.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.hasher.NeedsUpgrade(account.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := e.hasher.Hash(secret); err == nil {
				// Best-effort; a failed rehash update must not block login.
				if err := e.store.UpdatePasswordHash(ctx, account.ID, upgraded); err != nil {
					e.warn("authcore: password hash upgrade update failed: %v", err)
				}
			} else {
				e.warn("authcore: password hash upgrade generation failed: %v", err)
			}
		}
	}
	secret = ""

	pair, err := e.issuePair(ctx, account)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitEvent(ctx, eventLoginFailure, SeverityWarn, account.ID, false, err, map[string]string{
			"identifier": identifier,
			"reason":     "issue_failed",
		})
		return nil, err
	}

	if err := e.guard.Reset(ctx, identifier, endpointLogin); err != nil {
		e.warn("authcore: login rate window reset failed: %v", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitEvent(ctx, eventLoginSuccess, SeverityInfo, account.ID, true, nil, map[string]string{
		"identifier": identifier,
	})

	return pair, nil
}

// issuePair signs a fresh token pair for the account and stores the new
// refresh rotation pointer.
func (e *Engine) issuePair(ctx context.Context, account *Account) (*TokenPair, error) {
	now := e.clock.Now()
	perms := permission.Resolve(account.Role, account.Overrides)

	pair, err := e.tokens.Issue(account.ID, string(account.Role), perms, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetRefreshPointer(ctx, account.ID, pair.RefreshID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
