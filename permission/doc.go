// Package permission provides the static role catalog, permission resolution,
// and override normalization used by authcore authorization checks.
//
// # Catalog
//
// Roles and their base permission sets are a fixed in-memory table compiled
// into the binary. Resolution of an account's effective permission set is
// always PermissionsForRole(role) + overrides, recomputed on every call —
// resolved sets are never cached or persisted, so role or override changes
// at the store layer take effect on the next resolution.
//
// # Wildcard
//
// The legacy override literal "all" is normalized to the single sentinel
// [PermAll]; it is never expanded into the full permission list.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Override
// normalization ([NormalizeOverrides]) is meant to be called exactly once,
// at the store boundary — never inside the Engine.
//
// # What this package must NOT do
//
//   - Access databases, Redis, or the network.
//   - Import authcore or any sibling package.
//   - Mutate the role table after process start.
package permission
