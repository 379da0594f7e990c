// Package errors wraps errors with a category, the component that raised them
// and free-form context, and forwards selected categories to telemetry.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for exit codes, metrics and telemetry.
type ErrorCategory string

// CategorizedError is implemented by errors that carry their own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryArtifactNotFound      ErrorCategory = "artifact-not-found"     // model, scaler or class map unresolved
	CategoryInputNotFound         ErrorCategory = "input-not-found"        // audio or image input missing
	CategoryInvalidArgument       ErrorCategory = "invalid-argument"       // malformed CLI or config value
	CategoryScorerFailure         ErrorCategory = "scorer-failure"         // inference call failed
	CategoryDegradedNormalization ErrorCategory = "degraded-normalization" // scaler missing or unusable
	CategoryInvalidInput          ErrorCategory = "invalid-input"          // unusable probability vector

	CategoryModelInit      ErrorCategory = "model-initialization"
	CategoryModelLoad      ErrorCategory = "model-loading"
	CategoryValidation     ErrorCategory = "validation"
	CategoryFileIO         ErrorCategory = "file-io"
	CategoryFileParsing    ErrorCategory = "file-parsing"
	CategoryAudio          ErrorCategory = "audio-processing"
	CategoryImage          ErrorCategory = "image-processing"
	CategoryDatabase       ErrorCategory = "database"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryMQTTConnection ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish    ErrorCategory = "mqtt-publish"
	CategorySystem         ErrorCategory = "system-resource"
	CategoryGeneric        ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError is an error with category, component and context.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	component string
	reported  atomic.Bool
}

func (ee *EnhancedError) Error() string {
	if ee.Err == nil {
		return string(ee.Category)
	}
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, anything else through the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorCategory lets an EnhancedError satisfy CategorizedError.
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetComponent returns the component that raised the error.
func (ee *EnhancedError) GetComponent() string {
	return ee.component
}

// GetContext returns a copy of the error context.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// MarkReported marks the error as sent to telemetry.
func (ee *EnhancedError) MarkReported() { ee.reported.Store(true) }

// IsReported reports whether the error was sent to telemetry.
func (ee *EnhancedError) IsReported() bool { return ee.reported.Load() }

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component overrides the component derived from the call stack.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds one context value.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// ModelContext records the model file type and backend without the path.
func (eb *ErrorBuilder) ModelContext(modelPath, backend string) *ErrorBuilder {
	if modelPath != "" {
		eb.Context("model_file", fileExtension(modelPath))
	}
	if backend != "" {
		eb.Context("model_backend", backend)
	}
	return eb
}

// FileContext records the kind, extension and size class of a file without
// the path.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		kind := "relative-path"
		if strings.HasPrefix(filePath, "/") || strings.Contains(filePath, ":\\") {
			kind = "absolute-path"
		}
		eb.Context("file_type", kind)
		eb.Context("file_extension", fileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", sizeClass(fileSize))
	}
	return eb
}

// Timing records the operation and its duration in milliseconds.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", duration.Milliseconds())
	return eb
}

// hasActiveReporting lets Build skip the stack walk when nothing reports.
var hasActiveReporting atomic.Bool

// Build creates the error and hands it to the active telemetry reporter.
func (eb *ErrorBuilder) Build() *EnhancedError {
	component := eb.component
	if component == "" {
		component = ComponentUnknown
		if hasActiveReporting.Load() {
			component = callerComponent()
		}
	}
	category := eb.category
	if category == "" {
		category = detectCategory(eb.err, component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}
	reportToTelemetry(ee)
	return ee
}

const modulePrefix = "github.com/tphakala/snapquote/internal/"

// componentAliases renames packages whose name is not the component name.
var componentAliases = map[string]string{
	"conf": "configuration",
}

// callerComponent names the first internal package on the stack outside this
// one, e.g. "inference" for .../internal/inference.(*Detector).Detect.
func callerComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if _, rest, ok := strings.Cut(frame.Function, modulePrefix); ok {
			pkg, _, _ := strings.Cut(rest, ".")
			pkg, _, _ = strings.Cut(pkg, "/")
			if pkg != "errors" {
				if alias, ok := componentAliases[pkg]; ok {
					return alias
				}
				return pkg
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// detectCategory derives a category for errors built without one.
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if stderrors.As(err, &catErr) && catErr.ErrorCategory() != "" {
		return catErr.ErrorCategory()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found") && strings.Contains(msg, "searched"):
		return CategoryArtifactNotFound
	case strings.Contains(msg, "invoke"), strings.Contains(msg, "tensor"):
		return CategoryScorerFailure
	case strings.Contains(msg, "invalid"):
		return CategoryValidation
	}

	switch component {
	case "inference":
		return CategoryScorerFailure
	case "audio":
		return CategoryAudio
	case "datastore":
		return CategoryDatabase
	case "configuration":
		return CategoryConfiguration
	}
	return CategoryGeneric
}

func fileExtension(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return "none"
}

func sizeClass(size int64) string {
	switch {
	case size < 1<<10:
		return "tiny"
	case size < 1<<20:
		return "small"
	case size < 10<<20:
		return "medium"
	case size < 100<<20:
		return "large"
	default:
		return "very-large"
	}
}

// NewStd creates a plain error.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory reports whether err's chain holds an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// CategoryOf returns the category of the outermost EnhancedError in err's
// chain, or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) {
		return enhancedErr.Category
	}
	return CategoryGeneric
}
