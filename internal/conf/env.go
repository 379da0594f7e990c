// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "SNAPQUOTE"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "SNAPQUOTE_DEBUG", validateEnvBool},
		{"logging.level", "SNAPQUOTE_LOG_LEVEL", validateEnvLogLevel},
		{"logging.file", "SNAPQUOTE_LOG_FILE", nil},

		{"audio.model", "SNAPQUOTE_AUDIO_MODEL", nil},
		{"audio.scaler", "SNAPQUOTE_AUDIO_SCALER", nil},
		{"audio.featuretype", "SNAPQUOTE_AUDIO_FEATURE_TYPE", validateEnvFeatureType},
		{"audio.samplerate", "SNAPQUOTE_AUDIO_SAMPLE_RATE", validateEnvPositiveInt},
		{"audio.threshold", "SNAPQUOTE_AUDIO_THRESHOLD", validateEnvProbability},
		{"audio.threads", "SNAPQUOTE_AUDIO_THREADS", validateEnvThreads},

		{"detection.initialconfidence", "SNAPQUOTE_DETECTION_CONF", validateEnvProbability},
		{"detection.fallbackconfidence", "SNAPQUOTE_DETECTION_FALLBACK_CONF", validateEnvProbability},
		{"detection.skipfloor", "SNAPQUOTE_DETECTION_SKIP_FLOOR", validateEnvProbability},
		{"detection.classmap", "SNAPQUOTE_DETECTION_CLASS_MAP", nil},

		{"quote.pricing", "SNAPQUOTE_QUOTE_PRICING", nil},
		{"quote.region", "SNAPQUOTE_QUOTE_REGION", nil},

		{"history.enabled", "SNAPQUOTE_HISTORY_ENABLED", validateEnvBool},
		{"history.type", "SNAPQUOTE_HISTORY_TYPE", validateEnvHistoryType},
		{"history.sqlite.path", "SNAPQUOTE_HISTORY_SQLITE_PATH", nil},
		{"history.mysql.password", "SNAPQUOTE_HISTORY_MYSQL_PASSWORD", nil},
		{"history.mysql.passwordfile", "SNAPQUOTE_HISTORY_MYSQL_PASSWORD_FILE", nil},

		{"mqtt.enabled", "SNAPQUOTE_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "SNAPQUOTE_MQTT_BROKER", nil},
		{"mqtt.username", "SNAPQUOTE_MQTT_USERNAME", nil},
		{"mqtt.password", "SNAPQUOTE_MQTT_PASSWORD", nil},
		{"mqtt.passwordfile", "SNAPQUOTE_MQTT_PASSWORD_FILE", nil},

		{"sentry.enabled", "SNAPQUOTE_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "SNAPQUOTE_SENTRY_DSN", nil},
		{"sentry.dsnfile", "SNAPQUOTE_SENTRY_DSN_FILE", nil},

		{"metrics.textfile", "SNAPQUOTE_METRICS_TEXTFILE", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvProbability(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f <= 0 || f > 1 {
		return fmt.Errorf("must be in (0, 1], got %v", f)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvThreads(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fmt.Errorf("must be zero or a positive integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level")
}

func validateEnvFeatureType(value string) error {
	switch strings.TrimSpace(value) {
	case "mfcc", "multiple":
		return nil
	}
	return fmt.Errorf("must be mfcc or multiple")
}

func validateEnvHistoryType(value string) error {
	switch strings.TrimSpace(value) {
	case "sqlite", "mysql":
		return nil
	}
	return fmt.Errorf("must be sqlite or mysql")
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}
