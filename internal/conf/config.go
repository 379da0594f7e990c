// config.go: settings struct for snapquote and the functions that load it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// LoggingSettings controls diagnostic output. Console output always goes to stderr.
type LoggingSettings struct {
	Level    string // trace, debug, info, warn, error
	File     string // optional JSON log file, empty disables it
	Timezone string // timezone for file timestamps
}

// AudioSettings contains settings for the audio anomaly classifier.
type AudioSettings struct {
	Model       string  // model file name or path, resolved through the artifact locator
	Scaler      string  // scaler file name or path, empty means auto-locate scaler.json
	FeatureType string  // mfcc or multiple
	SampleRate  int     // target sample rate in Hz
	Threshold   float64 // confidence below this is reported as Uncertain
	MaxDuration float64 // seconds of audio analysed
	Threads     int     // tflite interpreter threads, 0 for runtime default
}

// DetectionSettings contains settings for the part detector.
type DetectionSettings struct {
	InitialConfidence  float64 // first-pass threshold
	FallbackConfidence float64 // second-pass threshold when the first finds nothing
	SkipFloor          float64 // a forced threshold at or below this disables the second pass
	IoU                float64 // non-maximum suppression overlap threshold
	InputSize          int     // detector input edge in pixels
	ClassMap           string  // class map file name or path
	Threads            int     // tflite interpreter threads
}

// QuoteSettings controls the repair cost quote attached to detect results.
type QuoteSettings struct {
	Pricing string // pricing table file name or path, the built-in table is used when unresolved
	Region  string // region whose price multiplier applies, empty for none
}

// ArtifactSettings lists extra directories searched for models, scalers and class maps.
type ArtifactSettings struct {
	Dirs []string
}

// SQLiteSettings contains settings for the SQLite history store.
type SQLiteSettings struct {
	Path string // database file path
}

// MySQLSettings contains settings for the MySQL history store.
type MySQLSettings struct {
	Host         string
	Port         string
	Username     string
	Password     string
	PasswordFile string // secret file overriding Password
	Database     string
}

// HistorySettings controls the run history database.
type HistorySettings struct {
	Enabled bool
	Type    string // sqlite or mysql
	SQLite  SQLiteSettings
	MySQL   MySQLSettings
}

// MetricsSettings controls metric export.
type MetricsSettings struct {
	Textfile string // node_exporter textfile collector path, empty disables export
}

// MQTTSettings contains settings for publishing results over MQTT.
type MQTTSettings struct {
	Enabled      bool   // true to enable MQTT
	Broker       string // MQTT (tcp://host:port)
	Topic        string // topic prefix, results go to <topic>/<kind>
	ClientID     string // client id, generated when empty
	Username     string // MQTT username
	Password     string // MQTT password, may reference ${ENV_VAR}
	PasswordFile string // secret file overriding Password
	Retain       bool   // retain published messages
	Timeout      int    // connect and publish timeout in seconds
}

// SentrySettings contains settings for error reporting.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	DSNFile     string
	Environment string
	SampleRate  float64
}

// Settings is the root configuration.
type Settings struct {
	Debug     bool
	Logging   LoggingSettings
	Audio     AudioSettings
	Detection DetectionSettings
	Quote     QuoteSettings
	Artifacts ArtifactSettings
	History   HistorySettings
	Metrics   MetricsSettings
	MQTT      MQTTSettings
	Sentry    SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file, .env and environment variables into
// a validated Settings. An empty configFile searches the default paths; a
// missing config file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, env bindings and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	// .env in the working directory only seeds variables that are not already set
	if err := godotenv.Load(); err == nil {
		GetLogger().Debug("loaded .env file")
	}

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}

	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetDefaultConfig returns the embedded reference configuration.
func GetDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return ""
	}
	return string(data)
}

// GetSettings returns the settings from the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ToYAML renders settings as YAML with secrets masked.
func (s *Settings) ToYAML() ([]byte, error) {
	masked := *s
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = maskedValue
	}
	if masked.History.MySQL.Password != "" {
		masked.History.MySQL.Password = maskedValue
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = maskedValue
	}
	return yaml.Marshal(&masked)
}

const maskedValue = "********"

// resolveSecrets expands environment references and secret files in the
// credential fields.
func resolveSecrets(s *Settings) error {
	fields := []struct {
		name  string
		value *string
		file  string
	}{
		{"history.mysql.password", &s.History.MySQL.Password, s.History.MySQL.PasswordFile},
		{"mqtt.password", &s.MQTT.Password, s.MQTT.PasswordFile},
		{"sentry.dsn", &s.Sentry.DSN, s.Sentry.DSNFile},
	}

	for _, f := range fields {
		resolved, err := secrets.Resolve(*f.value, f.file)
		if err != nil {
			return errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("setting", f.name).
				Build()
		}
		*f.value = resolved
	}
	return nil
}
