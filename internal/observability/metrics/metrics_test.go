package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsImplementRecorder(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	inference, err := NewInferenceMetrics(registry)
	require.NoError(t, err)
	history, err := NewHistoryMetrics(registry)
	require.NoError(t, err)

	recorders := []Recorder{inference, history, NopRecorder{}}
	for _, r := range recorders {
		r.RecordOperation(OpHistorySave, StatusSuccess)
		r.RecordDuration(OpHistorySave, 0.01)
		r.RecordError(OpHistorySave, "database")
	}

	assert.InDelta(t, 1, testutil.ToFloat64(inference.OperationsTotal.WithLabelValues(OpHistorySave, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(inference.ErrorsTotal.WithLabelValues(OpHistorySave, "database")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(history.OperationsTotal.WithLabelValues(OpHistorySave, StatusError)), 0)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewMQTTMetrics(registry)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(registry)
	assert.Error(t, err)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordConnect(nil)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connected), 0)
	m.RecordPublish("snapquote/detect", 512, 3*time.Millisecond, nil)
	m.RecordPublish("snapquote/detect", 512, time.Second, errors.New("timeout"))
	m.RecordDisconnect()

	assert.InDelta(t, 0, testutil.ToFloat64(m.Connected), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("snapquote/detect", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("snapquote/detect", StatusError)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PayloadBytes))

	var nilMetrics *MQTTMetrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordConnect(nil)
		nilMetrics.RecordPublish("x", 1, 0, nil)
		nilMetrics.RecordDisconnect()
	})
}
