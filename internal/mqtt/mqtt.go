// Package mqtt publishes result documents to an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/snapquote/internal/conf"
)

// Client defines the MQTT operations the publisher needs.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // prefix, results go to <Topic>/<kind>
	Retain            bool
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		Topic:             "snapquote",
		ConnectTimeout:    10 * time.Second,
		PublishTimeout:    5 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a Config from the mqtt settings section.
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := DefaultConfig()
	m := settings.MQTT
	cfg.Broker = m.Broker
	cfg.Username = m.Username
	cfg.Password = m.Password
	cfg.Retain = m.Retain
	if m.Topic != "" {
		cfg.Topic = m.Topic
	}
	cfg.ClientID = m.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = "snapquote-" + uuid.NewString()[:8]
	}
	if m.Timeout > 0 {
		cfg.ConnectTimeout = time.Duration(m.Timeout) * time.Second
		cfg.PublishTimeout = time.Duration(m.Timeout) * time.Second
	}
	return cfg
}

// TopicFor joins the configured prefix and a run kind.
func TopicFor(prefix, kind string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return kind
	}
	return prefix + "/" + kind
}
