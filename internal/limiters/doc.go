// Package limiters implements the automatic account lockout policy.
//
// Failure state (consecutive count plus last-failure timestamp) is
// persisted with the account, not held here; the policy reads and
// writes it through a FailureStore. Locked is a derived condition:
// count at or past the threshold AND the lockout window not yet
// elapsed since the last failure. Expiry therefore needs no timer or
// background sweep.
//
// Read-modify-write on one account's failure state is serialized by a
// striped mutex set, so two concurrent failures never lose a count.
package limiters
