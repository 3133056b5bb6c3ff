// Package password implements argon2id credential hashing and verification
// in PHC string format.
//
// # Format
//
// Hashes are encoded as $argon2id$v=19$m=...,t=...,p=...$salt$hash with
// standard base64. Verification recomputes the hash with the parameters
// embedded in the stored string and compares in constant time, so parameter
// upgrades never invalidate existing hashes.
//
// # Architecture boundaries
//
// This package knows nothing about accounts, lockout, or tokens. It never
// logs or retains the presented secret.
//
// # What this package must NOT do
//
//   - Access databases, Redis, or the network.
//   - Import authcore or any sibling package.
//   - Emit the plaintext password through any channel.
package password
