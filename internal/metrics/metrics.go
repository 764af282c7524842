// Package metrics exposes pipeline metrics to Prometheus and serves them,
// together with liveness and backup health, over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	artifactBytes   *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
	tierTotal       *prometheus.CounterVec
	tierDuration    *prometheus.HistogramVec
	cleanupDeleted  *prometheus.CounterVec
	cleanupFailures *prometheus.CounterVec
	health          *prometheus.GaugeVec
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drbackup_runs_total",
			Help: "Backup runs by project and final status",
		}, []string{"project", "status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drbackup_run_duration_seconds",
			Help:    "Duration of backup runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"project"}),
		artifactBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "drbackup_artifact_size_bytes",
			Help: "Size of the last artifact built for a project",
		}, []string{"project"}),
		lastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "drbackup_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of a project",
		}, []string{"project"}),
		tierTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drbackup_replication_total",
			Help: "Replication attempts by tier and result",
		}, []string{"tier", "result"}),
		tierDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drbackup_replication_duration_seconds",
			Help:    "Duration of replication to a tier",
			Buckets: prometheus.DefBuckets,
		}, []string{"tier"}),
		cleanupDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drbackup_retention_deleted_total",
			Help: "Hot tier objects removed by retention",
		}, []string{"project"}),
		cleanupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drbackup_retention_failures_total",
			Help: "Retention passes that reported an error",
		}, []string{"project"}),
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "drbackup_project_health",
			Help: "Backup health per project (2=healthy, 1=warning, 0=critical)",
		}, []string{"project"}),
	}
}

func (m *Metrics) ObserveRun(project, status string, d time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(project, status).Inc()
	m.runDuration.WithLabelValues(project).Observe(d.Seconds())
	if status == "success" {
		m.lastSuccess.WithLabelValues(project).Set(float64(at.Unix()))
	}
}

func (m *Metrics) ObserveArtifact(project string, size int64) {
	if m == nil {
		return
	}
	m.artifactBytes.WithLabelValues(project).Set(float64(size))
}

func (m *Metrics) ObserveTier(tier string, stored bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "stored"
	if !stored {
		result = "failed"
	}
	m.tierTotal.WithLabelValues(tier, result).Inc()
	m.tierDuration.WithLabelValues(tier).Observe(d.Seconds())
}

func (m *Metrics) ObserveCleanup(project string, deleted int, err error) {
	if m == nil {
		return
	}
	m.cleanupDeleted.WithLabelValues(project).Add(float64(deleted))
	if err != nil {
		m.cleanupFailures.WithLabelValues(project).Inc()
	}
}

// SetHealth records a project's health status name.
func (m *Metrics) SetHealth(project, status string) {
	if m == nil {
		return
	}
	var v float64
	switch status {
	case "healthy":
		v = 2
	case "warning":
		v = 1
	}
	m.health.WithLabelValues(project).Set(v)
}
