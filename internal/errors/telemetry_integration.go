package errors

import (
	"fmt"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/snapquote/internal/privacy"
)

// TelemetryReporter receives every error built while it is enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter forwards errors of selected categories to Sentry.
type SentryReporter struct {
	enabled    bool
	categories map[ErrorCategory]bool
}

// NewSentryReporter creates a Sentry reporter limited to the given
// categories. An empty list reports every category.
func NewSentryReporter(enabled bool, categories ...ErrorCategory) *SentryReporter {
	sr := &SentryReporter{enabled: enabled}
	if len(categories) > 0 {
		sr.categories = make(map[ErrorCategory]bool, len(categories))
		for _, c := range categories {
			sr.categories[c] = true
		}
	}
	return sr
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError sends ee once. Messages and string context values are scrubbed.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}
	if sr.categories != nil && !sr.categories[ee.Category] {
		return
	}

	message := privacy.ScrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	component := ee.GetComponent()
	title := errorTitle(component, ee.Category)
	level := levelFor(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = privacy.ScrubMessage(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}

		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, component})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// errorTitle builds a grouping title such as "Inference Scorer Failure".
func errorTitle(component string, category ErrorCategory) string {
	var words []string
	if component != "" && component != ComponentUnknown {
		words = append(words, titleCase(component)...)
	}
	return strings.Join(append(words, titleCase(string(category))...), " ")
}

func titleCase(s string) []string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return words
}

func levelFor(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryDegradedNormalization, CategoryInvalidArgument,
		CategoryArtifactNotFound, CategoryInputNotFound:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	reporterMu     sync.RWMutex
	activeReporter TelemetryReporter
)

// SetTelemetryReporter installs reporter; nil detaches the current one.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	activeReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the installed reporter.
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return activeReporter
}

func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
