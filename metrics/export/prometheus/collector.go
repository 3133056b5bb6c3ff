package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcore "github.com/ForwardAfrica/authcore"
)

// verifyLatencyBounds are the upper bounds, in seconds, of the engine's
// latency buckets. The engine's last bucket is the +Inf overflow.
var verifyLatencyBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// Source is what the collector reads. *authcore.Engine satisfies it.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Collector adapts engine snapshots to the prometheus.Collector
// contract. Every scrape takes a fresh snapshot; the collector holds no
// state of its own.
type Collector struct {
	source Source

	latencyDesc *prometheus.Desc
	droppedDesc *prometheus.Desc
}

// NewCollector wraps an engine.
func NewCollector(engine *authcore.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource wraps any snapshot source.
func NewCollectorFromSource(source Source) *Collector {
	return &Collector{
		source: source,
		latencyDesc: prometheus.NewDesc(
			"authcore_verify_latency_seconds",
			"Access token verification latency.",
			nil, nil),
		droppedDesc: prometheus.NewDesc(
			"authcore_audit_dropped_total",
			"Security events discarded on dispatcher backpressure.",
			nil, nil),
	}
}

var _ prometheus.Collector = (*Collector)(nil)

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for id, value := range snapshot.Counters {
		desc := prometheus.NewDesc(
			"authcore_"+id.Name()+"_total",
			"Engine counter "+id.Name()+".",
			nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(value))
	}

	for id, raw := range snapshot.Histograms {
		if id != authcore.MetricVerifyLatency || len(raw) != len(verifyLatencyBounds)+1 {
			continue
		}
		buckets := make(map[float64]uint64, len(verifyLatencyBounds))
		var cumulative uint64
		for i, bound := range verifyLatencyBounds {
			cumulative += raw[i]
			buckets[bound] = cumulative
		}
		count := cumulative + raw[len(raw)-1]
		// The engine tracks bucket hits only, not a duration sum.
		ch <- prometheus.MustNewConstHistogram(c.latencyDesc, count, 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves the collector from its own registry, ready to mount
// on a mux.
func Handler(source Source) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollectorFromSource(source))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
