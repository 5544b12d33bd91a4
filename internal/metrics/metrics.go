// Package metrics collects per-stage run metrics and writes them in the
// Prometheus textfile format.
package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

const namespace = "cyclestats"

// Recorder holds the metrics of one process. Each Recorder has its own
// registry so Go runtime metrics are not exported.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageRuns     *prometheus.CounterVec
	rows          *prometheus.GaugeVec
	artifacts     *prometheus.CounterVec
	warnings      *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stageDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last execution of a stage",
		}, []string{"stage"}),
		stageRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by outcome",
		}, []string{"stage", "outcome"}),
		rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Rows seen by the preprocessor, by kind",
		}, []string{"kind"}),
		artifacts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Files written, by stage",
		}, []string{"stage"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Warnings reported, by stage",
		}, []string{"stage"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stage",
		}),
	}
}

// ObserveStage records one stage execution. A nil err counts as success.
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
	r.stageRuns.WithLabelValues(stage, outcome).Inc()
	if err == nil {
		r.lastSuccess.SetToCurrentTime()
	}
}

// SetRows records row counts; kind is e.g. "valid", "flagged" or "malformed".
func (r *Recorder) SetRows(kind string, n int) {
	r.rows.WithLabelValues(kind).Set(float64(n))
}

// AddArtifacts counts files written by stage.
func (r *Recorder) AddArtifacts(stage string, n int) {
	r.artifacts.WithLabelValues(stage).Add(float64(n))
}

// AddWarnings counts warnings reported by stage.
func (r *Recorder) AddWarnings(stage string, n int) {
	r.warnings.WithLabelValues(stage).Add(float64(n))
}

// WriteTextfile writes all metrics to path for the node exporter textfile
// collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
