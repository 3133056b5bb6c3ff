package authcore

import (
	"context"
	"errors"
	"io"

	"github.com/ForwardAfrica/authcore/internal/audit"
)

// The security event model is defined in internal/audit; these aliases
// are the public surface for wiring sinks.
type (
	SecurityEvent = audit.Event
	EventSink     = audit.Sink
	NoOpSink      = audit.NoOpSink
	ChannelSink   = audit.ChannelSink
	Severity      = audit.Severity
)

const (
	SeverityInfo     = audit.SeverityInfo
	SeverityWarn     = audit.SeverityWarn
	SeverityCritical = audit.SeverityCritical
)

// NewChannelSink returns a sink that hands events to the host over a
// buffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	eventLoginSuccess        = "login_success"
	eventLoginFailure        = "login_failure"
	eventLoginRateLimited    = "login_rate_limited"
	eventLoginLocked         = "login_locked"
	eventRefreshSuccess      = "refresh_success"
	eventRefreshInvalid      = "refresh_invalid"
	eventRefreshRateLimited  = "refresh_rate_limited"
	eventRefreshReuse        = "refresh_reuse_detected"
	eventLogout              = "logout"
	eventAccountLocked       = "account_locked"
	eventAccountUnlocked     = "account_unlocked"
	eventAccountDeactivated  = "account_deactivated"
	eventAccountRoleChanged  = "account_role_changed"
	eventAccountOverridesSet = "account_overrides_set"
)

type eventErrorCode string

const (
	codeInvalidCredentials eventErrorCode = "invalid_credentials"
	codeAccountInactive    eventErrorCode = "account_inactive"
	codeRateLimited        eventErrorCode = "rate_limited"
	codeAccountLocked      eventErrorCode = "account_locked"
	codeTokenExpired       eventErrorCode = "token_expired"
	codeTokenInvalid       eventErrorCode = "invalid_token"
	codeTokenReuse         eventErrorCode = "refresh_reuse"
	codeRefreshInvalid     eventErrorCode = "refresh_invalid"
	codePermissionDenied   eventErrorCode = "permission_denied"
	codeNotFound           eventErrorCode = "account_not_found"
	codeRoleInvalid        eventErrorCode = "role_invalid"
	codeUnavailable        eventErrorCode = "backend_unavailable"
	codeInternal           eventErrorCode = "internal_error"
)

func (e *Engine) emitEvent(ctx context.Context, kind string, severity Severity, accountID string, success bool, err error, detail map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := SecurityEvent{
		Timestamp: e.clock.Now().UTC(),
		Kind:      kind,
		Severity:  severity,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Detail:    detail,
	}
	if code := errorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func errorCode(err error) eventErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return codeInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return codeAccountInactive
	case errors.Is(err, ErrRateLimited):
		return codeRateLimited
	case errors.Is(err, ErrAccountLocked):
		return codeAccountLocked
	case errors.Is(err, ErrTokenReused):
		return codeTokenReuse
	case errors.Is(err, ErrTokenExpired):
		return codeTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return codeTokenInvalid
	case errors.Is(err, ErrRefreshInvalid):
		return codeRefreshInvalid
	case errors.Is(err, ErrPermissionDenied):
		return codePermissionDenied
	case errors.Is(err, ErrAccountNotFound):
		return codeNotFound
	case errors.Is(err, ErrAccountRoleInvalid):
		return codeRoleInvalid
	case errors.Is(err, ErrStoreUnavailable):
		return codeUnavailable
	default:
		return codeInternal
	}
}
