package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"level" json:"level"`                 // trace, debug, info, warn, error
	Timezone     string            `yaml:"timezone" json:"timezone"`           // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `yaml:"console" json:"console"`             // stderr text output
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output"`     // optional JSON log file
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is plain text on stderr without timestamps.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level"`
}

// FileOutput represents file logging configuration.
// File output uses JSON with RFC3339 timestamps.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Level   string `yaml:"level" json:"level"`
}

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/snapquote.log"
)

// applyConfigDefaults fills in nil sections. Unlike a long-running service the
// CLI keeps file logging off unless a path is configured.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: true,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{Enabled: false}
	}
	if cfg.FileOutput.Enabled && cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
	if cfg.FileOutput.Level == "" {
		cfg.FileOutput.Level = cfg.DefaultLevel
	}
}
