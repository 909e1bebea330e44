package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metrics for the presence monitor.
type Metrics struct {
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	IdentitiesResolved prometheus.Counter
	ResolveFailures    prometheus.Counter
	BatchFailures      prometheus.Counter
	Transitions        *prometheus.CounterVec // labels: to
	NotificationsSent  prometheus.Counter
	NotifyFailures     prometheus.Counter
	IntegrityFaults    prometheus.Counter
	WatchedIdentities  prometheus.Gauge

	Registry *prometheus.Registry
}

// New registers and returns all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_cycles_total",
			Help: "Reconciliation cycles run",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chesswatch_cycle_duration_seconds",
			Help:    "Wall time of one reconciliation cycle",
			Buckets: prometheus.DefBuckets,
		}),
		IdentitiesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_identities_resolved_total",
			Help: "Handles successfully resolved to presence tokens",
		}),
		ResolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_resolve_failures_total",
			Help: "Failed handle resolution attempts (retried next cycle)",
		}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_presence_batch_failures_total",
			Help: "Presence batch calls that degraded a cycle",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chesswatch_transitions_total",
			Help: "Observed status transitions",
		}, []string{"to"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_notifications_sent_total",
			Help: "Online alerts delivered to subscribers",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_notification_failures_total",
			Help: "Online alerts that failed to send",
		}),
		IntegrityFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chesswatch_integrity_faults_total",
			Help: "Token collisions skipped during reconciliation",
		}),
		WatchedIdentities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chesswatch_watched_identities",
			Help: "Distinct handles currently watched",
		}),
		Registry: prometheus.NewRegistry(),
	}

	m.Registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.IdentitiesResolved,
		m.ResolveFailures,
		m.BatchFailures,
		m.Transitions,
		m.NotificationsSent,
		m.NotifyFailures,
		m.IntegrityFaults,
		m.WatchedIdentities,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
