// Package metrics provides the Prometheus collectors used by snapquote.
package metrics

// Recorder is the minimal surface components use to record metrics, so they
// can be tested without a registry.
type Recorder interface {
	// RecordOperation counts one operation with its outcome status.
	RecordOperation(operation, status string)

	// RecordDuration observes how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError counts one failure of operation, grouped by errorType.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string)  {}
func (NopRecorder) RecordDuration(string, float64)  {}
func (NopRecorder) RecordError(string, string)      {}
