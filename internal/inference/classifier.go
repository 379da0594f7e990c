package inference

import (
	"fmt"

	"github.com/tphakala/snapquote/internal/errors"
)

// Classifier scores feature vectors with a dense TFLite model.
type Classifier struct {
	sess *session
}

// LoadClassifier opens the model at path.
func LoadClassifier(path string, threads int) (*Classifier, error) {
	sess, err := openSession(path, threads)
	if err != nil {
		return nil, err
	}
	return &Classifier{sess: sess}, nil
}

// InputSize returns the number of features the model expects.
func (c *Classifier) InputSize() (int, error) {
	_, n, err := c.sess.input()
	return n, err
}

// Score runs one feature vector through the model and returns the raw
// output scores, one per class.
func (c *Classifier) Score(features []float64) ([]float64, error) {
	tensor, size, err := c.sess.input()
	if err != nil {
		return nil, err
	}
	if size != len(features) {
		return nil, errors.New(fmt.Errorf("model expects %d features, got %d", size, len(features))).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			ModelContext(c.sess.path, "tflite").
			Context("expected", size).
			Context("actual", len(features)).
			Build()
	}

	in := tensor.Float32s()
	for i, v := range features {
		in[i] = float32(v)
	}

	if err := c.sess.invoke(); err != nil {
		return nil, err
	}

	out, err := c.sess.output()
	if err != nil {
		return nil, err
	}
	return extractScores(out.Dim(out.NumDims()-1), out.Float32s()), nil
}

// extractScores copies the first n values of a raw output buffer.
func extractScores(n int, raw []float32) []float64 {
	n = min(n, len(raw))
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = float64(raw[i])
	}
	return scores
}

// Close releases the interpreter.
func (c *Classifier) Close() error {
	c.sess.close()
	return nil
}
