// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/snapquote/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, check := range []func(*Settings) error{
		func(s *Settings) error { return validateLoggingSettings(&s.Logging) },
		func(s *Settings) error { return validateAudioSettings(&s.Audio) },
		func(s *Settings) error { return validateDetectionSettings(&s.Detection) },
		func(s *Settings) error { return validateHistorySettings(&s.History) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
	} {
		if err := check(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryConfiguration).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateLoggingSettings(s *LoggingSettings) error {
	if err := validateEnvLogLevel(s.Level); err != nil {
		return fmt.Errorf("logging.level %q: %w", s.Level, err)
	}
	return nil
}

func validateAudioSettings(s *AudioSettings) error {
	var problems []string
	if strings.TrimSpace(s.Model) == "" {
		problems = append(problems, "audio.model must not be empty")
	}
	if s.FeatureType != "mfcc" && s.FeatureType != "multiple" {
		problems = append(problems, fmt.Sprintf("audio.featuretype must be mfcc or multiple, got %q", s.FeatureType))
	}
	if s.SampleRate <= 0 {
		problems = append(problems, "audio.samplerate must be positive")
	}
	if !validProbability(s.Threshold) {
		problems = append(problems, fmt.Sprintf("audio.threshold must be in (0, 1], got %v", s.Threshold))
	}
	if s.MaxDuration <= 0 {
		problems = append(problems, "audio.maxduration must be positive")
	}
	if s.Threads < 0 {
		problems = append(problems, "audio.threads must not be negative")
	}
	return joinProblems(problems)
}

func validateDetectionSettings(s *DetectionSettings) error {
	var problems []string
	if !validProbability(s.InitialConfidence) {
		problems = append(problems, fmt.Sprintf("detection.initialconfidence must be in (0, 1], got %v", s.InitialConfidence))
	}
	if !validProbability(s.FallbackConfidence) {
		problems = append(problems, fmt.Sprintf("detection.fallbackconfidence must be in (0, 1], got %v", s.FallbackConfidence))
	}
	if s.FallbackConfidence >= s.InitialConfidence {
		problems = append(problems, "detection.fallbackconfidence must be lower than detection.initialconfidence")
	}
	if s.SkipFloor < 0 || s.SkipFloor > 1 {
		problems = append(problems, fmt.Sprintf("detection.skipfloor must be in [0, 1], got %v", s.SkipFloor))
	}
	if s.IoU <= 0 || s.IoU > 1 {
		problems = append(problems, fmt.Sprintf("detection.iou must be in (0, 1], got %v", s.IoU))
	}
	if s.InputSize <= 0 || s.InputSize%32 != 0 {
		problems = append(problems, fmt.Sprintf("detection.inputsize must be a positive multiple of 32, got %d", s.InputSize))
	}
	if s.Threads < 0 {
		problems = append(problems, "detection.threads must not be negative")
	}
	return joinProblems(problems)
}

func validateHistorySettings(s *HistorySettings) error {
	if !s.Enabled {
		return nil
	}
	switch s.Type {
	case "sqlite":
		if s.SQLite.Path == "" {
			return fmt.Errorf("history.sqlite.path must be set when sqlite history is enabled")
		}
	case "mysql":
		if s.MySQL.Host == "" || s.MySQL.Database == "" {
			return fmt.Errorf("history.mysql.host and history.mysql.database must be set")
		}
	default:
		return fmt.Errorf("history.type must be sqlite or mysql, got %q", s.Type)
	}
	return nil
}

func validateMQTTSettings(s *MQTTSettings) error {
	if !s.Enabled {
		return nil
	}
	var problems []string
	if s.Broker == "" {
		problems = append(problems, "mqtt.broker must be set when MQTT is enabled")
	}
	if s.Topic == "" {
		problems = append(problems, "mqtt.topic must be set when MQTT is enabled")
	}
	if s.Timeout <= 0 {
		problems = append(problems, "mqtt.timeout must be positive")
	}
	return joinProblems(problems)
}

func validateSentrySettings(s *SentrySettings) error {
	if !s.Enabled {
		return nil
	}
	if s.DSN == "" {
		return fmt.Errorf("sentry.dsn must be set when sentry is enabled")
	}
	if s.SampleRate < 0 || s.SampleRate > 1 {
		return fmt.Errorf("sentry.samplerate must be in [0, 1], got %v", s.SampleRate)
	}
	return nil
}

func validProbability(v float64) bool {
	return v > 0 && v <= 1
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
