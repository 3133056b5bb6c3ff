// Package store provides account store implementations for the
// authcore engine.
//
// MemoryStore is a process-local store suitable for tests, examples
// and single-node deployments. The pg subpackage backs the same
// contract with PostgreSQL.
package store
