// Package inference runs TensorFlow Lite models: a dense classifier over
// audio feature vectors and a YOLO-style object detector over images.
package inference

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/tphakala/go-tflite"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// session owns one TFLite model and its interpreter.
type session struct {
	path        string
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

// openSession loads the model at path and allocates its tensors.
func openSession(path string, threads int) (*session, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		category := errors.CategoryModelLoad
		if os.IsNotExist(err) {
			category = errors.CategoryArtifactNotFound
		}
		return nil, errors.New(err).
			Component("inference").
			Category(category).
			ModelContext(path, "tflite").
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Context("model_size_kb", len(data)/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	if threads <= 0 {
		threads = max(1, runtime.NumCPU()/2)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("cannot create interpreter")).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("tensor allocation failed: %v", status)).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}

	GetLogger().Debug("model loaded",
		logger.String("path", path),
		logger.Int("threads", threads),
		logger.Duration("elapsed", time.Since(start)))

	return &session{path: path, model: model, options: options, interpreter: interpreter}, nil
}

// invoke runs the interpreter once.
func (s *session) invoke() error {
	if status := s.interpreter.Invoke(); status != tflite.OK {
		return errors.New(fmt.Errorf("tensor invoke failed: %v", status)).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			ModelContext(s.path, "tflite").
			Build()
	}
	return nil
}

// input returns input tensor 0 and its element count.
func (s *session) input() (*tflite.Tensor, int, error) {
	tensor := s.interpreter.GetInputTensor(0)
	if tensor == nil {
		return nil, 0, errors.New(fmt.Errorf("cannot get input tensor")).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			Build()
	}
	return tensor, elementCount(tensor), nil
}

// output returns output tensor 0.
func (s *session) output() (*tflite.Tensor, error) {
	tensor := s.interpreter.GetOutputTensor(0)
	if tensor == nil {
		return nil, errors.New(fmt.Errorf("cannot get output tensor")).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			Build()
	}
	return tensor, nil
}

func (s *session) close() {
	if s == nil {
		return
	}
	if s.interpreter != nil {
		s.interpreter.Delete()
	}
	if s.options != nil {
		s.options.Delete()
	}
	if s.model != nil {
		s.model.Delete()
	}
}

func tensorShape(t *tflite.Tensor) []int {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return shape
}

func elementCount(t *tflite.Tensor) int {
	n := 1
	for _, d := range tensorShape(t) {
		n *= d
	}
	return n
}
