// Package metrics exports per-connection health as Prometheus metrics. The
// streaming core keeps its own counters; this package bridges snapshots into
// a prometheus.Collector so operators can scrape every registered client
// without the core depending on a metrics backend.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamforge/marketstream/pkg/websocket"
)

// HealthSource is anything that can produce a connection health snapshot.
// *websocket.Client satisfies it.
type HealthSource interface {
	GetHealth() websocket.HealthStatus
}

// Collector implements prometheus.Collector over a set of named health
// sources. Metrics are read at scrape time, so registering a client has no
// steady-state cost.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]HealthSource

	stateDesc        *prometheus.Desc
	totalDesc        *prometheus.Desc
	successDesc      *prometheus.Desc
	failedDesc       *prometheus.Desc
	reconnectsDesc   *prometheus.Desc
	pingFailuresDesc *prometheus.Desc
	uptimeDesc       *prometheus.Desc
	lastActivityDesc *prometheus.Desc
}

// NewCollector creates an empty collector. Register it once with a
// prometheus.Registerer, then attach clients with Watch.
func NewCollector() *Collector {
	labels := []string{"connection"}
	return &Collector{
		sources: make(map[string]HealthSource),
		stateDesc: prometheus.NewDesc(
			"marketstream_connection_state",
			"Connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting, 4 failed)",
			labels, nil),
		totalDesc: prometheus.NewDesc(
			"marketstream_connection_attempts_total",
			"Total connection attempts",
			labels, nil),
		successDesc: prometheus.NewDesc(
			"marketstream_connection_successes_total",
			"Successful connection attempts",
			labels, nil),
		failedDesc: prometheus.NewDesc(
			"marketstream_connection_failures_total",
			"Failed connection attempts",
			labels, nil),
		reconnectsDesc: prometheus.NewDesc(
			"marketstream_reconnection_attempts_total",
			"Reconnection attempts",
			labels, nil),
		pingFailuresDesc: prometheus.NewDesc(
			"marketstream_ping_failures_total",
			"Liveness probes that timed out",
			labels, nil),
		uptimeDesc: prometheus.NewDesc(
			"marketstream_uptime_seconds",
			"Seconds since the client was created",
			labels, nil),
		lastActivityDesc: prometheus.NewDesc(
			"marketstream_last_activity_timestamp_seconds",
			"Unix time of the last inbound frame",
			labels, nil),
	}
}

// Watch attaches a named health source. Re-registering a name replaces the
// previous source.
func (c *Collector) Watch(name string, source HealthSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = source
}

// Forget detaches a named health source.
func (c *Collector) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
	ch <- c.totalDesc
	ch <- c.successDesc
	ch <- c.failedDesc
	ch <- c.reconnectsDesc
	ch <- c.pingFailuresDesc
	ch <- c.uptimeDesc
	ch <- c.lastActivityDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := make(map[string]HealthSource, len(c.sources))
	for name, source := range c.sources {
		sources[name] = source
	}
	c.mu.RUnlock()

	for name, source := range sources {
		health := source.GetHealth()

		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(health.State), name)
		ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.CounterValue, float64(health.TotalConnections), name)
		ch <- prometheus.MustNewConstMetric(c.successDesc, prometheus.CounterValue, float64(health.SuccessfulConnections), name)
		ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(health.FailedConnections), name)
		ch <- prometheus.MustNewConstMetric(c.reconnectsDesc, prometheus.CounterValue, float64(health.ReconnectionAttempts), name)
		ch <- prometheus.MustNewConstMetric(c.pingFailuresDesc, prometheus.CounterValue, float64(health.PingFailures), name)
		ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, health.Uptime.Seconds(), name)

		var lastActivity float64
		if !health.LastActivity.IsZero() {
			lastActivity = float64(health.LastActivity.Unix())
		}
		ch <- prometheus.MustNewConstMetric(c.lastActivityDesc, prometheus.GaugeValue, lastActivity, name)
	}
}
