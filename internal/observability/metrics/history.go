package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics tracks run history database operations.
type HistoryMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ResultRows        prometheus.Histogram

	registry *prometheus.Registry
}

// NewHistoryMetrics creates and registers the history collectors.
func NewHistoryMetrics(registry *prometheus.Registry) (*HistoryMetrics, error) {
	m := &HistoryMetrics{registry: registry}
	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Total number of history database operations",
		},
		[]string{"operation", "status"},
	)
	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Duration of history database operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"operation"},
	)
	m.ResultRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "datastore_db_query_result_size_rows",
		Help:    "Rows returned by history queries",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register history metrics: %w", err)
	}
	return m, nil
}

// RecordOperation implements Recorder.
func (m *HistoryMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *HistoryMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *HistoryMetrics) RecordError(operation, _ string) {
	m.OperationsTotal.WithLabelValues(operation, StatusError).Inc()
}

// ObserveRows records the size of a query result.
func (m *HistoryMetrics) ObserveRows(n int) {
	m.ResultRows.Observe(float64(n))
}

// Describe implements the prometheus.Collector interface.
func (m *HistoryMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	ch <- m.ResultRows.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *HistoryMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	ch <- m.ResultRows
}
