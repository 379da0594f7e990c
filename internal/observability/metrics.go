// Package observability owns the Prometheus registry for a snapquote run.
package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Inference *metrics.InferenceMetrics
	MQTT      *metrics.MQTTMetrics
	History   *metrics.HistoryMetrics
}

// NewMetrics creates a fresh registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	inferenceMetrics, err := metrics.NewInferenceMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	historyMetrics, err := metrics.NewHistoryMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create history metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Inference: inferenceMetrics,
		MQTT:      mqttMetrics,
		History:   historyMetrics,
	}, nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	getLogger().Debug("metrics textfile written", logger.String("path", path))
	return nil
}
