package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InferenceMetrics tracks audio classification and part detection runs.
type InferenceMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	PassesTotal        *prometheus.CounterVec
	FallbackTotal      prometheus.Counter
	DetectionsTotal    *prometheus.CounterVec
	CalibrationTotal   *prometheus.CounterVec
	ArtifactResolution *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge

	registry *prometheus.Registry
}

// NewInferenceMetrics creates and registers the inference collectors.
func NewInferenceMetrics(registry *prometheus.Registry) (*InferenceMetrics, error) {
	m := &InferenceMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register inference metrics: %w", err)
	}
	return m, nil
}

func (m *InferenceMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_runs_total",
			Help: "Total number of inference runs partitioned by kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	m.RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapquote_run_duration_seconds",
			Help:    "Wall time of a complete inference run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"kind"},
	)
	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_operations_total",
			Help: "Total number of pipeline operations by outcome.",
		},
		[]string{"operation", "status"},
	)
	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapquote_operation_duration_seconds",
			Help:    "Duration of individual pipeline operations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"operation"},
	)
	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_errors_total",
			Help: "Total number of errors by operation and category.",
		},
		[]string{"operation", "error_type"},
	)
	m.PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_passes_total",
			Help: "Total number of scorer passes executed.",
		},
		[]string{"kind"},
	)
	m.FallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapquote_fallback_passes_total",
		Help: "Total number of detection runs that needed the fallback threshold.",
	})
	m.DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_detections_total",
			Help: "Total number of reported detections by mapped label.",
		},
		[]string{"label"},
	)
	m.CalibrationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_calibration_outcomes_total",
			Help: "Total number of audio verdicts by label, including Uncertain.",
		},
		[]string{"label"},
	)
	m.ArtifactResolution = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_artifact_resolutions_total",
			Help: "Artifact lookups by kind and whether a file was found.",
		},
		[]string{"kind", "status"},
	)
	m.LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapquote_last_run_timestamp_seconds",
		Help: "Unix time of the most recent run.",
	})
}

// RecordRun records the outcome and duration of one run.
func (m *InferenceMetrics) RecordRun(kind string, elapsed time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.LastRunTimestamp.SetToCurrentTime()
}

// RecordPasses records how many scorer passes a run executed.
func (m *InferenceMetrics) RecordPasses(kind string, passes int, fallback bool) {
	m.PassesTotal.WithLabelValues(kind).Add(float64(passes))
	if fallback {
		m.FallbackTotal.Inc()
	}
}

// RecordDetection counts one reported detection.
func (m *InferenceMetrics) RecordDetection(label string) {
	m.DetectionsTotal.WithLabelValues(label).Inc()
}

// RecordCalibration counts one audio verdict.
func (m *InferenceMetrics) RecordCalibration(label string) {
	m.CalibrationTotal.WithLabelValues(label).Inc()
}

// RecordArtifact counts one artifact lookup.
func (m *InferenceMetrics) RecordArtifact(kind string, found bool) {
	status := StatusMissing
	if found {
		status = StatusFound
	}
	m.ArtifactResolution.WithLabelValues(kind, status).Inc()
}

// RecordOperation implements Recorder.
func (m *InferenceMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *InferenceMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *InferenceMetrics) RecordError(operation, errorType string) {
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *InferenceMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.RunDuration.Describe(ch)
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.PassesTotal.Describe(ch)
	ch <- m.FallbackTotal.Desc()
	m.DetectionsTotal.Describe(ch)
	m.CalibrationTotal.Describe(ch)
	m.ArtifactResolution.Describe(ch)
	ch <- m.LastRunTimestamp.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *InferenceMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.RunDuration.Collect(ch)
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.PassesTotal.Collect(ch)
	ch <- m.FallbackTotal
	m.DetectionsTotal.Collect(ch)
	m.CalibrationTotal.Collect(ch)
	m.ArtifactResolution.Collect(ch)
	ch <- m.LastRunTimestamp
}
