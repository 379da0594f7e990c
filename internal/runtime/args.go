package runtime

import (
	"math"
	"strconv"
	"strings"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// ParseProbability parses a threshold argument in (0, 1]. A malformed or
// out-of-range value is logged and def is returned with ok false.
func ParseProbability(name, raw string, def float64) (value float64, ok bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && (math.IsNaN(v) || v <= 0 || v > 1) {
		err = errors.NewStd("value must be in (0, 1]")
	}
	if err != nil {
		WarnInvalidArgument(name, raw, def, err)
		return def, false
	}
	return v, true
}

// ParsePositiveInt parses a positive integer argument, falling back to def
// the same way as ParseProbability.
func ParsePositiveInt(name, raw string, def int) (value int, ok bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err == nil && v <= 0 {
		err = errors.NewStd("value must be positive")
	}
	if err != nil {
		WarnInvalidArgument(name, raw, def, err)
		return def, false
	}
	return v, true
}

// WarnInvalidArgument logs an ignored command line value.
func WarnInvalidArgument(name, raw string, def any, cause error) {
	err := errors.New(cause).
		Component("cli").
		Category(errors.CategoryInvalidArgument).
		Context("argument", name).
		Context("value", raw).
		Build()
	GetLogger().Warn("invalid argument ignored, using default",
		logger.String("argument", name),
		logger.String("value", raw),
		logger.Any("default", def),
		logger.Error(err))
}

// ExitError carries the process exit code chosen by a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }
