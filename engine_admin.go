package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ForwardAfrica/authcore/permission"
)

// RegisterAccount creates a new active account with the secret hashed
// under the engine's password parameters. The identifier is trimmed
// and lowercased before storage so lookups are case-insensitive.
func (e *Engine) RegisterAccount(ctx context.Context, identifier, secret string, role Role) (*Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}
	if !permission.Known(role) {
		return nil, ErrAccountRoleInvalid
	}

	hash, err := e.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now().UTC()
	account := &Account{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}

// UnlockAccount clears the target's failure state ahead of the lockout
// window expiring on its own. The acting role must be allowed to manage
// the target's role.
func (e *Engine) UnlockAccount(ctx context.Context, actingRole Role, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	account, err := e.loadManaged(ctx, actingRole, accountID)
	if err != nil {
		return err
	}

	if err := e.store.UpdateFailureState(ctx, account.ID, 0, time.Time{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitEvent(ctx, eventAccountUnlocked, SeverityInfo, account.ID, true, nil, map[string]string{
		"acting_role": string(actingRole),
	})
	return nil
}

// SetAccountRole replaces the target's role. The acting role must be
// allowed to manage both the current role and the one being assigned.
// Overrides are kept as they are; permissions take effect on the next
// token issuance.
func (e *Engine) SetAccountRole(ctx context.Context, actingRole Role, accountID string, role Role) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if !permission.Known(role) {
		return ErrAccountRoleInvalid
	}
	account, err := e.loadManaged(ctx, actingRole, accountID)
	if err != nil {
		return err
	}
	if !permission.CanManage(actingRole, role) {
		return ErrPermissionDenied
	}

	if err := e.store.UpdateRole(ctx, account.ID, role, account.Overrides); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRoleChanged)
	e.emitEvent(ctx, eventAccountRoleChanged, SeverityInfo, account.ID, true, nil, map[string]string{
		"from": string(account.Role),
		"to":   string(role),
	})
	return nil
}

// SetAccountOverrides replaces the target's permission overrides. The
// store normalizes entries (trim, lowercase, dedupe, wildcard mapping)
// at its write edge.
func (e *Engine) SetAccountOverrides(ctx context.Context, actingRole Role, accountID string, overrides []string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	account, err := e.loadManaged(ctx, actingRole, accountID)
	if err != nil {
		return err
	}

	if err := e.store.UpdateRole(ctx, account.ID, account.Role, overrides); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitEvent(ctx, eventAccountOverridesSet, SeverityInfo, account.ID, true, nil, map[string]string{
		"count": fmt.Sprintf("%d", len(permission.NormalizeOverrideStrings(overrides))),
	})
	return nil
}

// DeactivateAccount marks the target inactive and kills its refresh
// chain. Outstanding access tokens run out their TTL.
func (e *Engine) DeactivateAccount(ctx context.Context, actingRole Role, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	account, err := e.loadManaged(ctx, actingRole, accountID)
	if err != nil {
		return err
	}

	if err := e.store.SetActive(ctx, account.ID, false); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.store.ClearRefreshPointer(ctx, account.ID); err != nil && !isNotFound(err) {
		e.warn("authcore: clearing refresh pointer on deactivate failed: %v", err)
	}

	e.metricInc(MetricAccountDeactivated)
	e.emitEvent(ctx, eventAccountDeactivated, SeverityWarn, account.ID, true, nil, map[string]string{
		"acting_role": string(actingRole),
	})
	return nil
}

// loadManaged fetches the target account and checks the acting role is
// allowed to manage the target's current role.
func (e *Engine) loadManaged(ctx context.Context, actingRole Role, accountID string) (*Account, error) {
	account, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !permission.CanManage(actingRole, account.Role) {
		return nil, ErrPermissionDenied
	}
	return account, nil
}
