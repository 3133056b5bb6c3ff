// Package audit defines the security event model and the asynchronous
// dispatcher that forwards events to a pluggable sink.
//
// Emission never blocks or fails the calling flow: a full buffer drops
// the event and bumps a counter instead of stalling a login. A single
// consumer goroutine drains the buffer, so events for one account reach
// the sink in emission order.
//
// Event IDs are ULIDs with monotonic entropy: sortable by time, unique
// within the process even for events in the same millisecond.
package audit
