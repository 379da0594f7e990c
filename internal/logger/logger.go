// Package logger provides module-aware structured logging on top of log/slog.
//
// Console output is human-readable text written to stderr so that stdout stays
// reserved for machine-readable command results. An optional JSON log file can
// be enabled through LoggingConfig.
//
//	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{DefaultLevel: "debug"})
//	if err != nil {
//	    return err
//	}
//	defer cl.Close()
//	logger.SetGlobal(cl)
//
//	log := logger.Global().Module("detection")
//	log.Info("pass completed",
//	    logger.Float64("threshold", 0.25),
//	    logger.Int("detections", 3))
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// internKey interns the key so repeated keys share one allocation.
func internKey(key string) string {
	return unique.Make(key).Value()
}

var errorKey = internKey("error")

// Logger is the logging interface injected into every component.
type Logger interface {
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	// WithContext tags records with the run ID carried by ctx.
	WithContext(ctx context.Context) Logger
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a float field. Values are rounded to three decimals on output.
//
//	log.Debug("pass finished",
//	    logger.Float64("threshold", 0.05),
//	    logger.Int("detections", len(dets)))
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float32 creates a 32-bit float field.
func Float32(key string, value float32) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates a field under the "error" key. A nil error yields a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a string such as "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a timestamp field.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Strings creates a field holding a list of strings, used for probed paths.
func Strings(key string, values []string) Field {
	return Field{Key: internKey(key), Value: values}
}

// Any creates a field with an arbitrary JSON-serializable value.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
