// Package rate enforces fixed-window request budgets ahead of the
// credential path.
//
// Every endpoint belongs to one of four traffic classes (auth, api,
// upload, admin), each with its own max/window rule. Counting is
// attempt-based: denied attempts consume budget too, so a client that
// keeps hammering a closed window stays closed.
//
// Counters live in a CounterStore. The in-memory store serves a single
// process; the Redis store shares one window across replicas.
//
// # What this package must NOT do
//
//   - Inspect credentials or account state; it sees opaque identifiers.
//   - Distinguish existing from unknown identifiers in any observable way.
package rate
