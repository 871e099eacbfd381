// Package metrics records session lifecycle counters for a run and exports
// them as a Prometheus textfile at run teardown.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Acquisition kinds recorded by SessionAcquired.
const (
	AcquireFresh        = "fresh"
	AcquireReused       = "reused"
	AcquirePageRecreate = "page_recreated"
	AcquireFullRecreate = "full_recreated"
)

// Collector holds the run's metrics on a private registry. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	connectAttempts   *prometheus.CounterVec
	acquisitions      *prometheus.CounterVec
	provisionDuration *prometheus.HistogramVec
	scenarios         *prometheus.CounterVec
	diagnostics       *prometheus.CounterVec
	teardownFailures  *prometheus.CounterVec
}

// NewCollector creates a collector whose metric names are prefixed by namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Remote connection attempts by target and result.",
		},
		[]string{"target", "result"},
	)
	c.acquisitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_acquisitions_total",
			Help:      "Session acquisitions by target and kind (fresh, reused, page_recreated, full_recreated).",
		},
		[]string{"target", "kind"},
	)
	c.provisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_duration_seconds",
			Help:      "Time spent provisioning a fresh session.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"target"},
	)
	c.scenarios = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Finished scenarios by outcome.",
		},
		[]string{"outcome"},
	)
	c.diagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostic side effects (screenshot, status) by result.",
		},
		[]string{"kind", "result"},
	)
	c.teardownFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_failures_total",
			Help:      "Failed teardown steps by step name.",
		},
		[]string{"step"},
	)

	c.registry.MustRegister(
		c.connectAttempts,
		c.acquisitions,
		c.provisionDuration,
		c.scenarios,
		c.diagnostics,
		c.teardownFailures,
	)

	return c
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ConnectAttempt records one remote connection attempt.
func (c *Collector) ConnectAttempt(target string, err error) {
	if c == nil {
		return
	}
	c.connectAttempts.WithLabelValues(target, result(err)).Inc()
}

// SessionAcquired records how a session was obtained.
func (c *Collector) SessionAcquired(target, kind string) {
	if c == nil {
		return
	}
	c.acquisitions.WithLabelValues(target, kind).Inc()
}

// ObserveProvision records the duration of a fresh provision.
func (c *Collector) ObserveProvision(target string, d time.Duration) {
	if c == nil {
		return
	}
	c.provisionDuration.WithLabelValues(target).Observe(d.Seconds())
}

// ScenarioFinished records a scenario outcome.
func (c *Collector) ScenarioFinished(outcome string) {
	if c == nil {
		return
	}
	c.scenarios.WithLabelValues(outcome).Inc()
}

// Diagnostic records a screenshot capture or status report.
func (c *Collector) Diagnostic(kind string, err error) {
	if c == nil {
		return
	}
	c.diagnostics.WithLabelValues(kind, result(err)).Inc()
}

// TeardownFailure records a teardown step that failed.
func (c *Collector) TeardownFailure(step string) {
	if c == nil {
		return
	}
	c.teardownFailures.WithLabelValues(step).Inc()
}

// Registry exposes the private registry, e.g. for an HTTP handler or tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteTextfile writes all metrics in the text exposition format, creating the
// parent directory if needed.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
