// Package prometheus exposes the authcore engine counters as a
// prometheus.Collector.
//
// [NewCollector] wraps an [authcore.Engine]; register it in the
// registry of your choice and serve it with promhttp. All counters are
// exported as authcore_*_total, the single histogram as
// authcore_verify_latency_seconds, plus authcore_audit_dropped_total
// for dispatcher backpressure.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers own that.
//   - Mutate engine state.
package prometheus
