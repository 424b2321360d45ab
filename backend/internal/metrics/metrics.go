// Package metrics exposes Prometheus counters for the HTTP surface, the
// tool executor and the stores behind it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	// Business metrics
	ContactsCreated prometheus.Counter
	FactsAdded      prometheus.Counter
	GraphUpserts    *prometheus.CounterVec
	BatchItems      *prometheus.CounterVec
	DriftFindings   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so several can
// coexist in one process (tests do this).
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls by outcome",
			},
			[]string{"tool", "result"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ContactsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contacts_created_total",
				Help:      "Total number of contacts created",
			},
		),
		FactsAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "facts_added_total",
				Help:      "Total number of facts allocated to a slot",
			},
		),
		GraphUpserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_upserts_total",
				Help:      "Total number of node and edge upserts",
			},
			[]string{"kind"},
		),
		BatchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_items_total",
				Help:      "Total number of batch entries by outcome",
			},
			[]string{"kind", "result"},
		),
		DriftFindings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drift_findings_total",
				Help:      "Total number of reconciliation findings by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ToolCalls,
		c.ToolDuration,
		c.ContactsCreated,
		c.FactsAdded,
		c.GraphUpserts,
		c.BatchItems,
		c.DriftFindings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveTool records one tool call. result is "ok" or an error code.
func (c *Collector) ObserveTool(tool, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.ToolCalls.WithLabelValues(tool, result).Inc()
	c.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// IncrementCounter increments a named business counter by 1
func (c *Collector) IncrementCounter(name string, labels ...string) {
	c.IncrementCounterBy(name, 1, labels...)
}

// IncrementCounterBy routes a named business counter to its metric.
// Unknown names are ignored.
func (c *Collector) IncrementCounterBy(name string, value float64, labels ...string) {
	if c == nil || value <= 0 {
		return
	}
	switch name {
	case "contacts_created":
		c.ContactsCreated.Add(value)
	case "facts_added":
		c.FactsAdded.Add(value)
	case "graph_upserts":
		c.GraphUpserts.WithLabelValues(labels...).Add(value)
	case "batch_items":
		c.BatchItems.WithLabelValues(labels...).Add(value)
	case "drift_findings":
		c.DriftFindings.WithLabelValues(labels...).Add(value)
	}
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
