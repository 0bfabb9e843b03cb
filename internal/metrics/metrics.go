// Package metrics exposes prometheus instrumentation for the API surface
// and the AI pipeline on a dedicated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the prometheus instruments. It registers on a private
// registry so the process-wide default registry stays untouched.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	aiCallsTotal    *prometheus.CounterVec
	storedItems     *prometheus.GaugeVec
	registry        *prometheus.Registry
}

// NewCollector creates a collector with all instruments registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crlhelp_requests_total",
			Help: "API requests by endpoint and HTTP status.",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crlhelp_request_duration_seconds",
			Help:    "API request latency by endpoint.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"endpoint"},
	)

	aiCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crlhelp_ai_calls_total",
			Help: "AI provider calls by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	storedItems := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crlhelp_stored_items",
			Help: "Stored records by type.",
		},
		[]string{"type"},
	)

	registry.MustRegister(requestsTotal)
	registry.MustRegister(requestDuration)
	registry.MustRegister(aiCallsTotal)
	registry.MustRegister(storedItems)

	return &Collector{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		aiCallsTotal:    aiCallsTotal,
		storedItems:     storedItems,
		registry:        registry,
	}
}

// RecordRequest counts one handled request and observes its latency.
// endpoint is the route pattern, not the raw path, to keep cardinality low.
func (c *Collector) RecordRequest(endpoint, status string, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(endpoint, status).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordAICall counts one provider call. kind is embedding, summary,
// metadata, or answer; status is success or error.
func (c *Collector) RecordAICall(kind, status string) {
	c.aiCallsTotal.WithLabelValues(kind, status).Inc()
}

// SetStoredItems sets the current number of stored records of a type.
func (c *Collector) SetStoredItems(itemType string, count int) {
	c.storedItems.WithLabelValues(itemType).Set(float64(count))
}

// Registry returns the registry for HTTP exposure.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
