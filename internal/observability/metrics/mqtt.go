package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks result publishing. All methods accept a nil receiver.
type MQTTMetrics struct {
	Connected       prometheus.Gauge
	ConnectsTotal   *prometheus.CounterVec
	PublishesTotal  *prometheus.CounterVec
	PayloadBytes    prometheus.Histogram
	PublishDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

func (m *MQTTMetrics) initMetrics() {
	m.Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapquote_mqtt_connected",
		Help: "1 while the result publisher holds a broker connection.",
	})
	m.ConnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_mqtt_connects_total",
			Help: "Broker connection attempts by outcome.",
		},
		[]string{"status"},
	)
	m.PublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapquote_mqtt_publishes_total",
			Help: "Published run results by topic and outcome.",
		},
		[]string{"topic", "status"},
	)
	m.PayloadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapquote_mqtt_payload_bytes",
		Help:    "Size of published result documents.",
		Buckets: prometheus.ExponentialBuckets(128, 2, 10),
	})
	m.PublishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapquote_mqtt_publish_duration_seconds",
		Help:    "Time from publish to broker acknowledgement.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
}

// RecordConnect counts one connection attempt and updates the gauge.
func (m *MQTTMetrics) RecordConnect(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ConnectsTotal.WithLabelValues(StatusError).Inc()
		m.Connected.Set(0)
		return
	}
	m.ConnectsTotal.WithLabelValues(StatusSuccess).Inc()
	m.Connected.Set(1)
}

// RecordDisconnect clears the connection gauge.
func (m *MQTTMetrics) RecordDisconnect() {
	if m == nil {
		return
	}
	m.Connected.Set(0)
}

// RecordPublish counts one publish. Size and latency are observed only for
// delivered messages.
func (m *MQTTMetrics) RecordPublish(topic string, size int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PublishesTotal.WithLabelValues(topic, StatusError).Inc()
		return
	}
	m.PublishesTotal.WithLabelValues(topic, StatusSuccess).Inc()
	m.PayloadBytes.Observe(float64(size))
	m.PublishDuration.Observe(elapsed.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Connected.Describe(ch)
	m.ConnectsTotal.Describe(ch)
	m.PublishesTotal.Describe(ch)
	m.PayloadBytes.Describe(ch)
	m.PublishDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Connected.Collect(ch)
	m.ConnectsTotal.Collect(ch)
	m.PublishesTotal.Collect(ch)
	m.PayloadBytes.Collect(ch)
	m.PublishDuration.Collect(ch)
}
