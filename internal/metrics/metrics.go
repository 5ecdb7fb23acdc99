// Package metrics exposes Prometheus instrumentation for collector jobs,
// reconciliation and plan runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "listing_collector"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	JobsStarted   *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	JobsRunning   prometheus.Gauge
	ProgressLines *prometheus.CounterVec

	SyncsTotal        *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	ListingsUpserted  prometheus.Counter
	StatsUpserted     prometheus.Counter
	PriceChanges      prometheus.Counter

	PlanRuns *prometheus.CounterVec
}

// New registers all metrics with reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{}
	m.initJobMetrics(factory)
	m.initSyncMetrics(factory)

	m.PlanRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "plan_runs_total",
			Help:      "Scheduled plan executions by outcome",
		},
		[]string{"status"},
	)
	return m
}

func (m *Metrics) initJobMetrics(factory promauto.Factory) {
	m.JobsStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "started_total",
			Help:      "Collector jobs created",
		},
		[]string{"triggered_by"},
	)

	m.JobsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Collector jobs that reached a terminal status",
		},
		[]string{"status"},
	)

	m.JobsRunning = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "running",
			Help:      "Collector processes currently running",
		},
	)

	m.ProgressLines = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "output_lines_total",
			Help:      "Worker output lines by kind",
		},
		[]string{"kind"},
	)
}

func (m *Metrics) initSyncMetrics(factory promauto.Factory) {
	m.SyncsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "total",
			Help:      "Snapshot ingestions by outcome",
		},
		[]string{"status"},
	)

	m.ReconcileDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of canonical reconciliation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	m.ListingsUpserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "sync", Name: "listings_upserted_total",
		Help: "Canonical listings written",
	})
	m.StatsUpserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "sync", Name: "daily_stats_upserted_total",
		Help: "Daily stat rows written",
	})
	m.PriceChanges = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "sync", Name: "price_changes_total",
		Help: "Price change rows appended",
	})
}

func (m *Metrics) JobStarted(triggeredBy string) {
	if m == nil {
		return
	}
	if triggeredBy == "" {
		triggeredBy = "unknown"
	}
	m.JobsStarted.WithLabelValues(triggeredBy).Inc()
}

func (m *Metrics) ProcessStarted() {
	if m == nil {
		return
	}
	m.JobsRunning.Inc()
}

func (m *Metrics) ProcessExited() {
	if m == nil {
		return
	}
	m.JobsRunning.Dec()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) OutputLine(structured bool) {
	if m == nil {
		return
	}
	kind := "text"
	if structured {
		kind = "progress"
	}
	m.ProgressLines.WithLabelValues(kind).Inc()
}

func (m *Metrics) SyncFinished(status string, listings, stats, changes int, took time.Duration) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(status).Inc()
	m.ReconcileDuration.Observe(took.Seconds())
	m.ListingsUpserted.Add(float64(listings))
	m.StatsUpserted.Add(float64(stats))
	m.PriceChanges.Add(float64(changes))
}

func (m *Metrics) PlanRun(status string) {
	if m == nil {
		return
	}
	m.PlanRuns.WithLabelValues(status).Inc()
}
