// Package metrics is the ambient Prometheus instrumentation around the
// core: cache hit/miss counts, plugin-chain NO_PLUGIN faults, and
// request/response byte sizes. The core itself never imports this
// package; a host wires these calls in around its own FinalizeRequest/
// DecodeResponse call sites, reporting metrics out-of-band from its
// decoders.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the metrics a host registers once per process.
type Collectors struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	NoPluginFaults prometheus.Counter
	RequestBytes   prometheus.Histogram
	ResponseBytes  prometheus.Histogram
}

// New builds a Collectors with the given namespace and registers it
// with reg. Passing prometheus.NewRegistry() keeps it isolated from the
// default registerer, the way a library embedded in a larger host
// should behave.
func New(namespace string, reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total",
			Help: "Requests resolved directly from a cacheline without contacting the server.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total",
			Help: "Requests that had to be sent to the server.",
		}),
		NoPluginFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "no_plugin_faults_total",
			Help: "finalize_request/add_beacon calls that failed with NO_PLUGIN.",
		}),
		RequestBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "request_bytes",
			Help:    "Size in bytes of encoded request frames.",
			Buckets: prometheus.LinearBuckets(64, 64, 16),
		}),
		ResponseBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "response_bytes",
			Help:    "Size in bytes of decoded response frames.",
			Buckets: prometheus.LinearBuckets(32, 32, 16),
		}),
	}
	reg.MustRegister(c.CacheHits, c.CacheMisses, c.NoPluginFaults, c.RequestBytes, c.ResponseBytes)
	return c
}

// ObserveOutcome records a FinalizeRequest result: a cache hit, a
// server-bound request of reqLen bytes, or a NO_PLUGIN fault.
func (c *Collectors) ObserveOutcome(hit bool, noPlugin bool, reqLen int) {
	switch {
	case noPlugin:
		c.NoPluginFaults.Inc()
	case hit:
		c.CacheHits.Inc()
	default:
		c.CacheMisses.Inc()
		c.RequestBytes.Observe(float64(reqLen))
	}
}

// ObserveResponse records a decoded response's size.
func (c *Collectors) ObserveResponse(respLen int) {
	c.ResponseBytes.Observe(float64(respLen))
}
