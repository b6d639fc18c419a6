// Package metrics exposes the server's Prometheus collectors: per-command
// result counters, pool connection gauges, and the AOF queue depth.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors registered against a single registry so
// callers don't have to thread each one through separately.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	PoolConnections *prometheus.GaugeVec
	AofQueueDepth   prometheus.Gauge
}

// New creates and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spacekv",
			Subsystem: "engine",
			Name:      "commands_total",
			Help:      "Commands executed by the storage engine, by command kind and result.",
		}, []string{"command", "result"}),
		PoolConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spacekv",
			Subsystem: "pool",
			Name:      "connections",
			Help:      "Client connection pool state, by state (total, available, waiting).",
		}, []string{"state"}),
		AofQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spacekv",
			Subsystem: "aof",
			Name:      "queue_depth",
			Help:      "Number of commands buffered ahead of the AOF writer.",
		}),
	}

	reg.MustRegister(m.CommandsTotal, m.PoolConnections, m.AofQueueDepth)
	return m
}

// ObserveCommand records the outcome of one engine.Execute call. result
// should be "ok" or "error".
func (m *Metrics) ObserveCommand(command, result string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, result).Inc()
}

// ObservePoolStatus mirrors a pool's Status snapshot into the gauges.
func (m *Metrics) ObservePoolStatus(total, available, waiting int) {
	if m == nil {
		return
	}
	m.PoolConnections.WithLabelValues("total").Set(float64(total))
	m.PoolConnections.WithLabelValues("available").Set(float64(available))
	m.PoolConnections.WithLabelValues("waiting").Set(float64(waiting))
}

// ObserveAofQueueDepth mirrors the engine's AOF queue depth into the gauge.
func (m *Metrics) ObserveAofQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.AofQueueDepth.Set(float64(depth))
}
