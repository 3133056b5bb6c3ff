package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown identifiers and wrong
	// passwords alike; callers get no way to tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive reports a deactivated account. Only surfaced
	// after the presented credentials verified, so it cannot be used to
	// probe for account existence.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked reports an account inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrRateLimited reports a request denied by the traffic budget
	// before any credential work happened.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenExpired reports an authentic token past its lifetime.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports a token that failed signature or structural
	// verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenReused reports an authentic refresh token whose rotation id
	// no longer matches the account pointer: it was already spent.
	ErrTokenReused = errors.New("refresh token reuse detected")
	// ErrRefreshInvalid reports a refresh token that is authentic but not
	// redeemable, e.g. presented after logout.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrPermissionDenied reports an admin operation the actor's role
	// does not permit.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAccountNotFound reports a missing account on an admin operation.
	// Login and refresh never surface it.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountRoleInvalid reports a role outside the catalog.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrStoreUnavailable reports an account store that failed to answer.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady reports an Engine used before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RetryAfterError decorates a denial with the time until the caller may
// try again. Unwrap preserves errors.Is against the underlying sentinel.
type RetryAfterError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryAfter extracts the retry hint from err, zero when absent.
func RetryAfter(err error) time.Duration {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.RetryAfter
	}
	return 0
}
