package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("shown", String("source", "car.wav"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "source=car.wav")
	assert.NotContains(t, out, "time=")
}

func TestModuleLoggerAddsModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cl, err := newCentralLogger(&LoggingConfig{DefaultLevel: "debug"}, &buf)
	require.NoError(t, err)

	log := cl.Module("detection").Module("retry").With(Float64("threshold", 0.123456))
	log.Debug("pass finished", Int("detections", 0))

	out := buf.String()
	assert.Contains(t, out, "module=detection.retry")
	assert.Contains(t, out, "threshold=0.123")
	assert.Contains(t, out, "detections=0")
}

func TestModuleLevelsInheritFromParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		ModuleLevels: map[string]string{"inference": "error"},
	}, &buf)
	require.NoError(t, err)

	cl.Module("inference.tflite").Warn("suppressed")
	cl.Module("locator").Debug("visible")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "visible")
}

func TestTraceLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("very chatty")
	log.Warn("explicit")

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "level=WARN")
}

func TestWithContextRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	ctx := WithRunID(context.Background(), "run-42")
	assert.Equal(t, "run-42", RunID(ctx))

	log.WithContext(ctx).Info("tagged")
	log.WithContext(context.Background()).Info("untagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run_id=run-42")
	assert.NotContains(t, lines[1], "run_id")
}

func TestFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	var console bytes.Buffer
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		FileOutput:   &FileOutput{Enabled: true, Path: path},
	}, &console)
	require.NoError(t, err)

	cl.Module("audio").Error("decode failed", Error(errors.New("short read")))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "audio", rec["module"])
	assert.Equal(t, "short read", rec["error"])
	assert.Contains(t, console.String(), "decode failed")
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := newCentralLogger(&LoggingConfig{Timezone: "Not/AZone"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestNilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, levelTrace, parseLogLevel("trace"))
	assert.Equal(t, parseLogLevel("WARNING"), parseLogLevel("warn"))
	assert.Equal(t, parseLogLevel("info"), parseLogLevel("nonsense"))
}
