// Package token issues and verifies the signed access/refresh token pair.
//
// # Tokens
//
// Access tokens are self-contained: claims embed the account id, role, and
// the permission set resolved at issuance time. A later permission change is
// not reflected until the next issuance — the staleness window is bounded by
// the access TTL. Refresh tokens carry only the account id, a type marker,
// and a unique rotation identifier (jti); whether that identifier is still
// current is decided by the caller against the account store.
//
// # Key rotation
//
// When Config.VerifyKeys is set, verification selects the key by the token's
// kid header, so tokens signed by a previous key remain verifiable during a
// grace period. Signing always uses PrivateKey/KeyID.
//
// # What this package must NOT do
//
//   - Access any store; rotation state lives with the account.
//   - Import authcore or any sibling package.
//   - Read the wall clock; callers supply now.
package token
