// Package authcore provides a token-based authentication and
// authorization engine: argon2id credential verification with
// account lockout, rotating single-use refresh tokens, JWT access
// tokens carrying resolved permissions, fixed-window rate limiting,
// and an append-only security event stream.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], the [AccountStore] contract, and value types (TokenPair,
// AccessIdentity, MetricsSnapshot, SecurityEvent). Rate limiting,
// lockout arithmetic, and audit dispatch live under internal/ and are
// never exported. Concrete stores live in store/ and store/pg/.
//
// # What this package must NOT do
//
//   - Expose Redis clients, hashing internals, or signing keys in its
//     public API.
//   - Consult the account store during access token verification.
//     VerifyAccess is offline; revocation bites at the next refresh.
//   - Import any sub-package that re-imports authcore (no import
//     cycles).
//
// # Performance contract
//
// VerifyAccess is the hot path: one signature check, no store
// round-trips. Login and Refresh each take a bounded number of store
// round-trips plus, for Login, one argon2id verification.
package authcore
