package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	enabled  bool
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return r.enabled }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildReportsWhenReporterActive(t *testing.T) {
	rec := &recordingReporter{enabled: true}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("tensor invoke failed").Component("inference").Build()

	require.Len(t, rec.reported, 1)
	assert.Same(t, ee, rec.reported[0])
	assert.True(t, ee.IsReported())
	assert.Equal(t, CategoryScorerFailure, ee.Category)
}

func TestDisabledReporterKeepsFastPath(t *testing.T) {
	rec := &recordingReporter{enabled: false}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	_ = Newf("boom").Build()

	assert.False(t, hasActiveReporting.Load())
	assert.Empty(t, rec.reported)
}

func TestExplicitCategorySurvivesWrapping(t *testing.T) {
	t.Parallel()

	inner := Newf("model file not found. Searched: [a b]").
		Category(CategoryArtifactNotFound).
		Build()
	wrapped := fmt.Errorf("loading classifier: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryArtifactNotFound))
	assert.Equal(t, CategoryArtifactNotFound, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(fmt.Errorf("plain")))
	assert.False(t, IsCategory(wrapped, CategoryInputNotFound))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryInputNotFound).Build()
	b := Newf("second").Category(CategoryInputNotFound).Build()
	c := Newf("third").Category(CategoryScorerFailure).Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      ErrorCategory
	}{
		{"nil", nil, "", CategoryGeneric},
		{"searched list", NewStd("scaler file not found. Searched: [x]"), "", CategoryArtifactNotFound},
		{"tensor", NewStd("output tensor is nil"), "", CategoryScorerFailure},
		{"categorized cause", Newf("x").Category(CategoryImage).Build(), "", CategoryImage},
		{"invalid", NewStd("invalid threshold"), "", CategoryValidation},
		{"audio component", NewStd("short read"), "audio", CategoryAudio},
		{"datastore component", NewStd("locked"), "datastore", CategoryDatabase},
		{"fallback", NewStd("something"), "", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err, tt.component))
		})
	}
}

func TestBuilderContext(t *testing.T) {
	t.Parallel()

	ee := Newf("read failed").
		Category(CategoryFileIO).
		FileContext("/home/someone/clip.wav", 2048).
		ModelContext("weights/best.tflite", "tflite").
		Timing("decode", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "absolute-path", ctx["file_type"])
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
	assert.Equal(t, "tflite", ctx["model_file"])
	assert.Equal(t, "tflite", ctx["model_backend"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
	assert.NotContains(t, fmt.Sprint(ctx), "someone")
}

func TestCallerComponent(t *testing.T) {
	rec := &recordingReporter{enabled: true}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("no component given").Build()
	assert.Equal(t, ComponentUnknown, ee.GetComponent(), "tests in this package are skipped")
}

func TestErrorTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Inference Scorer Failure", errorTitle("inference", CategoryScorerFailure))
	assert.Equal(t, "Artifact Not Found", errorTitle(ComponentUnknown, CategoryArtifactNotFound))
	assert.Equal(t, "Configuration Invalid Argument", errorTitle("configuration", CategoryInvalidArgument))
}
