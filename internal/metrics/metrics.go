// Package metrics provides layer-level metrics collection. It wraps
// Prometheus collectors for session resolutions, canvas bootstrap outcomes
// and per-descriptor failures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the layer's metrics.
type Collector struct {
	registry *prometheus.Registry

	sessionResolutions *prometheus.CounterVec
	bootstraps         *prometheus.CounterVec
	descriptorFailures *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "widget_layer",
			Name:      "session_resolutions_total",
			Help:      "Session resolutions by outcome.",
		}, []string{"outcome"}),
		bootstraps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "widget_layer",
			Name:      "canvas_bootstraps_total",
			Help:      "Canvas bootstrap attempts by outcome.",
		}, []string{"outcome"}),
		descriptorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "widget_layer",
			Name:      "descriptor_failures_total",
			Help:      "Per-descriptor failures by reason.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(c.sessionResolutions, c.bootstraps, c.descriptorFailures)
	return c
}

// Registry exposes the underlying registry for HTTP export.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SessionResolution records one resolution with outcome "ok" or "error".
func (c *Collector) SessionResolution(outcome string) {
	c.sessionResolutions.WithLabelValues(outcome).Inc()
}

// Bootstrap records one bootstrap attempt with its terminal outcome.
func (c *Collector) Bootstrap(outcome string) {
	c.bootstraps.WithLabelValues(outcome).Inc()
}

// DescriptorFailure records one isolated descriptor failure.
func (c *Collector) DescriptorFailure(reason string) {
	c.descriptorFailures.WithLabelValues(reason).Inc()
}
