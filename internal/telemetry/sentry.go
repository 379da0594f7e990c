// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/snapquote/internal/buildinfo"
	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

// ReportedCategories are the only error categories sent to Sentry. Missing
// inputs and bad arguments are user mistakes, not defects.
var ReportedCategories = []errors.ErrorCategory{
	errors.CategoryScorerFailure,
	errors.CategoryModelLoad,
	errors.CategoryModelInit,
}

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK when enabled in settings and registers
// it as the errors package reporter. A disabled section is not an error.
func InitSentry(settings *conf.Settings, build buildinfo.BuildInfo) error {
	return initSentry(settings, build, nil)
}

func initSentry(settings *conf.Settings, build buildinfo.BuildInfo, transport sentry.Transport) error {
	log := GetLogger()

	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry enabled but no DSN configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sampleRate := settings.Sentry.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          fmt.Sprintf("snapquote@%s", build.GetVersion()),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("build_date", build.GetBuildDate())
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true, ReportedCategories...))
	sentryInitialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", environment),
		logger.Float64("sample_rate", sampleRate))
	return nil
}

// Enabled reports whether InitSentry configured a client.
func Enabled() bool {
	return sentryInitialized.Load()
}

// Flush waits for queued events to be delivered. It is a no-op when telemetry
// was never initialized.
func Flush(timeout time.Duration) {
	if !Enabled() {
		return
	}
	if !sentry.Flush(timeout) {
		GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", timeout))
	}
}

// Shutdown flushes and detaches the reporter from the errors package.
func Shutdown() {
	Flush(DefaultFlushTimeout)
	if sentryInitialized.CompareAndSwap(true, false) {
		errors.SetTelemetryReporter(nil)
	}
}
