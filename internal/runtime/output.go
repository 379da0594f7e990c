package runtime

import (
	"encoding/json"
	"io"

	"github.com/tphakala/snapquote/internal/observability/metrics"
)

// WriteJSON writes v as one JSON line. Nothing is written if encoding fails.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// InferenceMetrics returns the inference collectors, or nil before Init.
func (c *Context) InferenceMetrics() *metrics.InferenceMetrics {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Inference
}
