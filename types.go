package authcore

import (
	"context"
	"time"

	"github.com/ForwardAfrica/authcore/permission"
)

// Role is re-exported so callers wiring accounts do not need to import
// the permission package for the common case.
type Role = permission.Role

// Account is the canonical account record. The engine reads and writes
// it only through an AccountStore.
//
// RefreshTokenID is the rotation pointer: the jti of the single refresh
// token currently redeemable for this account. Empty means no live
// refresh token (never logged in, or logged out).
type Account struct {
	ID             string
	Identifier     string
	PasswordHash   string
	Role           Role
	Overrides      []string
	Active         bool
	FailedAttempts int
	LastFailureAt  time.Time
	RefreshTokenID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessIdentity is the verified content of an access token.
type AccessIdentity struct {
	AccountID   string
	Role        Role
	Permissions []string
	ExpiresAt   time.Time
}

// AccountStore is the persistence contract the engine runs against.
// Implementations must return ErrAccountNotFound for missing records
// and may wrap backend failures in ErrStoreUnavailable.
//
// SwapRefreshPointer is the rotation primitive: atomically replace the
// pointer with next only if it still equals expected, reporting whether
// the swap won. Concurrent redemptions of the same refresh token must
// resolve to exactly one winner.
type AccountStore interface {
	AccountByIdentifier(ctx context.Context, identifier string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	UpdateFailureState(ctx context.Context, id string, count int, last time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetRefreshPointer(ctx context.Context, id, refreshID string) error
	SwapRefreshPointer(ctx context.Context, id, expected, next string) (bool, error)
	ClearRefreshPointer(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, id string, role Role, overrides []string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// Clock abstracts the wall clock so flows are testable at exact
// boundaries.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
