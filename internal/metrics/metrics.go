// Package metrics holds the Prometheus collectors for the request pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coinrates"

// Collector groups the network collectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	retries         *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	calls           *prometheus.CounterVec
}

// New creates a Collector registered on a fresh registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "attempts_total",
				Help:      "Total number of HTTP attempts issued.",
			},
			[]string{"endpoint", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "retries_total",
				Help:      "Total number of scheduled retries.",
			},
			[]string{"endpoint", "reason"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of single HTTP attempts.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"endpoint"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "calls_total",
				Help:      "Total number of completed logical calls by result kind.",
			},
			[]string{"endpoint", "result"},
		),
	}

	c.registry.MustRegister(c.attempts, c.retries, c.attemptDuration, c.calls)
	return c
}

// Registry returns the registry the collectors live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt records one HTTP attempt
func (c *Collector) ObserveAttempt(endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(endpoint, outcome).Inc()
	c.attemptDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncRetry records a scheduled retry
func (c *Collector) IncRetry(endpoint, reason string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(endpoint, reason).Inc()
}

// IncCall records a completed logical call. result is "success" or an error kind.
func (c *Collector) IncCall(endpoint, result string) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(endpoint, result).Inc()
}

// Attempts returns the attempts counter, for tests
func (c *Collector) Attempts() *prometheus.CounterVec { return c.attempts }

// Retries returns the retries counter, for tests
func (c *Collector) Retries() *prometheus.CounterVec { return c.retries }

// Calls returns the calls counter, for tests
func (c *Collector) Calls() *prometheus.CounterVec { return c.calls }
