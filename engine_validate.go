package authcore

import (
	"context"
	"errors"

	"github.com/ForwardAfrica/authcore/permission"
	"github.com/ForwardAfrica/authcore/token"
)

// VerifyAccess validates an access token offline and returns the
// identity it carries. No store round trip happens here: the role and
// permissions are the ones resolved at issuance, so a role change or
// deactivation takes effect at the next refresh, not mid-lifetime.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := e.clock.Now()
	defer func() {
		e.metrics.Observe(MetricVerifyLatency, e.clock.Now().Sub(start))
	}()

	claims, err := e.tokens.VerifyAccess(accessToken, start)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricVerifySuccess)
	return &AccessIdentity{
		AccountID:   claims.Subject,
		Role:        Role(claims.Role),
		Permissions: claims.Permissions,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// HasPermission reports whether the identity's permission set grants
// the named permission. The wildcard entry grants everything.
func (id *AccessIdentity) HasPermission(perm string) bool {
	if id == nil {
		return false
	}
	return permission.Contains(id.Permissions, perm)
}

// RequirePermission is the error-returning form of HasPermission for
// callers gating an operation.
func (e *Engine) RequirePermission(ctx context.Context, accessToken, perm string) (*AccessIdentity, error) {
	identity, err := e.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !identity.HasPermission(perm) {
		return nil, ErrPermissionDenied
	}
	return identity, nil
}
