// Package metrics defines the Prometheus collectors for the generation
// pipeline and the per-document recording session used by its stages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	GenerationsTotal      *prometheus.CounterVec
	GenerationFailures    *prometheus.CounterVec
	GenerationsInProgress prometheus.Gauge
	StageDuration         *prometheus.HistogramVec
	ProduceAttempts       *prometheus.CounterVec
	ArtifactSizeBytes     prometheus.Histogram
	UploadFailures        prometheus.Counter
	EnhancementDuration   *prometheus.HistogramVec
	EnhancementFailures   *prometheus.CounterVec
}

// New creates all pipeline metrics and registers them on the given
// registerer. Passing a fresh registry keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_generations_total",
				Help: "Total document generations by terminal status.",
			},
			[]string{"status"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_generation_failures_total",
				Help: "Total document generation failures by error code.",
			},
			[]string{"error_code"},
		),
		GenerationsInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "document_generations_in_progress",
				Help: "Number of document generations currently running.",
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "document_generation_stage_duration_seconds",
				Help:    "Duration of each generation stage in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		ProduceAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_produce_attempts_total",
				Help: "Artifact rasterization attempts by result (success, failure).",
			},
			[]string{"result"},
		),
		ArtifactSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "artifact_size_bytes",
				Help:    "Produced artifact size in bytes.",
				Buckets: []float64{10_000, 50_000, 100_000, 250_000, 500_000, 1_000_000, 2_500_000},
			},
		),
		UploadFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "artifact_upload_failures_total",
				Help: "Total artifact upload failures.",
			},
		),
		EnhancementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enhancement_duration_seconds",
				Help:    "AI enhancement duration in seconds per section.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"section"},
		),
		EnhancementFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enhancement_failures_total",
				Help: "Total AI enhancement failures per section.",
			},
			[]string{"section"},
		),
	}

	reg.MustRegister(
		m.GenerationsTotal,
		m.GenerationFailures,
		m.GenerationsInProgress,
		m.StageDuration,
		m.ProduceAttempts,
		m.ArtifactSizeBytes,
		m.UploadFailures,
		m.EnhancementDuration,
		m.EnhancementFailures,
	)

	return m
}

// Handler returns the scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
