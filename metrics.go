package pdoflow

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the Prometheus surface for the pool supervisor's "count
// live workers; expose as readable metric" requirement (spec.md §4.4
// step 3) plus basic dispatch throughput counters. It is optional:
// NewMetrics(nil) still returns usable, unregistered collectors, so
// embedding applications that don't want a /metrics endpoint pay
// nothing beyond four idle collector objects.
type Metrics struct {
	WorkersRunning prometheus.Gauge
	UnitsClaimed   prometheus.Counter
	UnitsSucceeded prometheus.Counter
	UnitsFailed    prometheus.Counter
}

// NewMetrics builds the collectors and, if reg is non-nil, registers
// them against it. Registering twice against the same registerer is
// tolerated (an AlreadyRegisteredError just reuses the existing
// collector), so callers may share one Metrics across multiple Pools
// safely.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdoflow_pool_workers_running",
			Help: "Number of worker slots currently spawning or running.",
		}),
		UnitsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdoflow_units_claimed_total",
			Help: "Total JobRecords claimed across all workers.",
		}),
		UnitsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdoflow_units_succeeded_total",
			Help: "Total JobRecords recorded as done.",
		}),
		UnitsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdoflow_units_failed_total",
			Help: "Total JobRecords recorded as failed (retried or errored out).",
		}),
	}
	if reg == nil {
		return m
	}
	for _, c := range []prometheus.Collector{m.WorkersRunning, m.UnitsClaimed, m.UnitsSucceeded, m.UnitsFailed} {
		are, ok := reg.Register(c).(prometheus.AlreadyRegisteredError)
		if !ok {
			continue
		}
		switch existing := are.ExistingCollector; c {
		case m.WorkersRunning:
			m.WorkersRunning = existing.(prometheus.Gauge)
		case m.UnitsClaimed:
			m.UnitsClaimed = existing.(prometheus.Counter)
		case m.UnitsSucceeded:
			m.UnitsSucceeded = existing.(prometheus.Counter)
		case m.UnitsFailed:
			m.UnitsFailed = existing.(prometheus.Counter)
		}
	}
	return m
}
