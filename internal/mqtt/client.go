package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
	"github.com/tphakala/snapquote/internal/observability/metrics"
	"github.com/tphakala/snapquote/internal/privacy"
)

// client implements Client on paho.
type client struct {
	config         Config
	internalClient paho.Client
	mu             sync.Mutex
	metrics        *metrics.MQTTMetrics
}

// NewClient creates an MQTT client. m may be nil.
func NewClient(config Config, m *metrics.MQTTMetrics) Client {
	return &client{config: config, metrics: m}
}

// Connect resolves the broker host and connects once.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.connect(ctx)
	c.metrics.RecordConnect(err)
	if err != nil {
		return err
	}
	GetLogger().Debug("connected to MQTT broker", logger.String("broker", privacy.RedactURL(c.config.Broker)))
	return nil
}

func (c *client) connect(ctx context.Context) error {
	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", c.config.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(fmt.Errorf("failed to resolve hostname %s: %w", host, err)).
				Component("mqtt").
				Category(errors.CategoryMQTTConnection).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(c.config.ConnectTimeout)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return errors.Newf("connection timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("timeout", c.config.ConnectTimeout.String()).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(fmt.Errorf("connection error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}

	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	err := c.publish(topic, payload)
	c.metrics.RecordPublish(topic, len(payload), time.Since(start), err)
	return err
}

func (c *client) publish(topic string, payload []byte) error {
	if !c.isConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return errors.Newf("publish timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected()
}

func (c *client) isConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.RecordDisconnect()
	}
}
