package mqtt

import (
	"context"

	"github.com/tphakala/snapquote/internal/logger"
)

// Publisher sends result documents under a topic prefix.
type Publisher struct {
	client Client
	prefix string
}

// NewPublisher wraps client.
func NewPublisher(client Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix}
}

// Publish connects if needed and sends payload to <prefix>/<kind>. Failures
// are logged as warnings and returned so callers can count them.
func (p *Publisher) Publish(ctx context.Context, kind string, payload []byte) error {
	topic := TopicFor(p.prefix, kind)
	log := GetLogger().With(logger.String("topic", topic))

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			log.Warn("MQTT connect failed, result not published", logger.Error(err))
			return err
		}
	}

	if err := p.client.Publish(ctx, topic, payload); err != nil {
		log.Warn("MQTT publish failed", logger.Error(err))
		return err
	}

	log.Debug("result published", logger.Int("bytes", len(payload)))
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}
