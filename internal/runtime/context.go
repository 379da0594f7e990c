// Package runtime holds the per-process state shared by the commands: loaded
// settings, metrics and the lazily opened history store and MQTT publisher.
package runtime

import (
	"sync"

	"github.com/tphakala/snapquote/internal/analysis"
	"github.com/tphakala/snapquote/internal/buildinfo"
	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/datastore"
	"github.com/tphakala/snapquote/internal/locator"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/mqtt"
	"github.com/tphakala/snapquote/internal/observability"
	"github.com/tphakala/snapquote/internal/observability/metrics"
	"github.com/tphakala/snapquote/internal/telemetry"
)

// Context is created once in main and passed to every command.
type Context struct {
	Build    *buildinfo.Context
	Settings *conf.Settings
	Metrics  *observability.Metrics

	// BaseDir anchors artifact searches; empty uses the executable's directory.
	BaseDir string

	mu        sync.Mutex
	store     datastore.Interface
	publisher *mqtt.Publisher
	central   *logger.CentralLogger
}

// New returns an uninitialized Context.
func New(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Init installs settings, the central logger, metrics and telemetry.
func (c *Context) Init(settings *conf.Settings) error {
	c.Settings = settings

	central, err := logger.NewCentralLogger(loggingConfig(settings))
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	c.central = central

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	c.Metrics = m

	if err := telemetry.InitSentry(settings, c.Build); err != nil {
		GetLogger().Warn("telemetry disabled", logger.Error(err))
	}
	return nil
}

// loggingConfig maps the logging settings onto the central logger config.
func loggingConfig(settings *conf.Settings) *logger.LoggingConfig {
	level := settings.Logging.Level
	if settings.Debug {
		level = string(logger.LogLevelDebug)
	}
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     settings.Logging.Timezone,
	}
	if settings.Logging.File != "" {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: settings.Logging.File, Level: level}
	}
	return cfg
}

// Locator returns an artifact locator rooted at BaseDir (or the executable's
// directory) that also probes the configured artifact dirs.
func (c *Context) Locator() *locator.Locator {
	base := c.BaseDir
	if base == "" {
		if dir, err := conf.ExecutableDir(); err == nil {
			base = dir
		}
	}
	loc := locator.New(base)
	if c.Settings != nil && len(c.Settings.Artifacts.Dirs) > 0 {
		loc = loc.WithExtraDirs(c.Settings.Artifacts.Dirs...)
	}
	return loc
}

// Store opens the history store on first use. It returns nil, nil when
// history is disabled.
func (c *Context) Store() (datastore.Interface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	var recorder metrics.Recorder
	if c.Metrics != nil {
		recorder = c.Metrics.History
	}
	store := datastore.New(c.Settings, recorder)
	if store == nil {
		return nil, nil
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// Dependencies returns the analysis collaborators enabled by the settings.
// A history store that cannot be opened only disables history for this run.
func (c *Context) Dependencies() analysis.Dependencies {
	deps := analysis.Dependencies{}
	if c.Metrics != nil {
		deps.Metrics = c.Metrics.Inference
	}

	store, err := c.Store()
	if err != nil {
		GetLogger().Warn("history store unavailable, run will not be recorded", logger.Error(err))
	} else if store != nil {
		deps.Store = store
	}

	if pub := c.mqttPublisher(); pub != nil {
		deps.Publisher = pub
	}
	return deps
}

func (c *Context) mqttPublisher() *mqtt.Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.publisher != nil || c.Settings == nil || !c.Settings.MQTT.Enabled {
		return c.publisher
	}
	cfg := mqtt.ConfigFromSettings(c.Settings)
	var m *metrics.MQTTMetrics
	if c.Metrics != nil {
		m = c.Metrics.MQTT
	}
	c.publisher = mqtt.NewPublisher(mqtt.NewClient(cfg, m), cfg.Topic)
	return c.publisher
}

// Close flushes metrics, closes the store and publisher, and shuts down
// telemetry. It is safe to call on a Context that never finished Init.
func (c *Context) Close() {
	log := GetLogger()

	if c.Metrics != nil && c.Settings != nil {
		if err := c.Metrics.WriteTextfile(c.Settings.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics textfile", logger.Error(err))
		}
	}

	c.mu.Lock()
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			log.Warn("failed to close history store", logger.Error(err))
		}
		c.store = nil
	}
	if c.publisher != nil {
		c.publisher.Close()
		c.publisher = nil
	}
	c.mu.Unlock()

	telemetry.Shutdown()

	if c.central != nil {
		_ = c.central.Close()
	}
}
