package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/snapquote/internal/errors"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Inference.RecordRun("detect", 120*time.Millisecond, nil)
	m.Inference.RecordRun("detect", time.Second, errors.NewStd("boom"))
	m.Inference.RecordPasses("detect", 2, true)
	m.Inference.RecordDetection("bumper")
	m.Inference.RecordDetection("bumper")
	m.Inference.RecordCalibration("Uncertain")
	m.Inference.RecordArtifact("model", false)
	m.MQTT.RecordConnect(errors.NewStd("refused"))
	m.History.RecordOperation("history_save", "success")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Inference.RunsTotal.WithLabelValues("detect", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Inference.RunsTotal.WithLabelValues("detect", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Inference.PassesTotal.WithLabelValues("detect")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Inference.FallbackTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Inference.DetectionsTotal.WithLabelValues("bumper")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Inference.CalibrationTotal.WithLabelValues("Uncertain")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Inference.ArtifactResolution.WithLabelValues("model", "missing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MQTT.ConnectsTotal.WithLabelValues("error")), 0)

	count, err := testutil.GatherAndCount(m.Registry(), "snapquote_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsAreIsolatedPerRegistry(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)

	a.Inference.RecordDetection("door")
	assert.InDelta(t, 0, testutil.ToFloat64(b.Inference.DetectionsTotal.WithLabelValues("door")), 0)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Inference.RecordRun("audio", 50*time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "collector", "snapquote.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `snapquote_runs_total{kind="audio",status="success"} 1`)

	assert.NoError(t, m.WriteTextfile(""))
}
