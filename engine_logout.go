package authcore

import (
	"context"
	"fmt"
)

// Logout invalidates the account's active refresh token by clearing
// the stored pointer. Access tokens already issued stay valid until
// they expire on their own; callers needing immediate revocation keep
// the access TTL short.
func (e *Engine) Logout(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrAccountNotFound
	}

	if err := e.store.ClearRefreshPointer(ctx, accountID); err != nil {
		if isNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitEvent(ctx, eventLogout, SeverityInfo, accountID, true, nil, nil)
	return nil
}
