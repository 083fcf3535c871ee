// Package metrics exposes Prometheus collectors for the bus-api service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics and their registry.
type Collector struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec // labels: source, outcome
	RequestDuration  prometheus.Histogram
	StopsRequested   prometheus.Counter
}

// NewCollector creates and registers the bus-api collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busapi_upstream_requests_total",
			Help: "Upstream feed queries by source and outcome.",
		}, []string{"source", "outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busapi_aggregate_request_seconds",
			Help:    "Duration of aggregate endpoint requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		StopsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busapi_stops_requested_total",
			Help: "Total stop lookups requested by callers.",
		}),
	}

	reg.MustRegister(c.UpstreamRequests, c.RequestDuration, c.StopsRequested)
	return c
}

// ObserveUpstream records the outcome of one upstream feed query.
func (c *Collector) ObserveUpstream(source string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.UpstreamRequests.WithLabelValues(source, outcome).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
