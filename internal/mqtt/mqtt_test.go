package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient records publishes in memory.
type fakeClient struct {
	connected  bool
	connectErr error
	publishErr error
	topics     []string
	payloads   [][]byte
}

func (f *fakeClient) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) Disconnect()       { f.connected = false }

func TestTopicFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, kind, want string
	}{
		{"snapquote", "audio", "snapquote/audio"},
		{"garage/inspections/", "detect", "garage/inspections/detect"},
		{"", "detect", "detect"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicFor(tt.prefix, tt.kind))
	}
}

func TestPublisher(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	p := NewPublisher(fc, "snapquote")

	require.NoError(t, p.Publish(context.Background(), "detect", []byte(`{"parts":[]}`)))
	assert.True(t, fc.connected)
	assert.Equal(t, []string{"snapquote/detect"}, fc.topics)
	assert.JSONEq(t, `{"parts":[]}`, string(fc.payloads[0]))

	p.Close()
	assert.False(t, fc.connected)
}

func TestPublisherFailuresAreReturned(t *testing.T) {
	t.Parallel()

	boom := errors.NewStd("broker down")

	fc := &fakeClient{connectErr: boom}
	assert.ErrorIs(t, NewPublisher(fc, "x").Publish(context.Background(), "audio", nil), boom)

	fc = &fakeClient{publishErr: boom}
	assert.ErrorIs(t, NewPublisher(fc, "x").Publish(context.Background(), "audio", nil), boom)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.MQTT.Broker = "tcp://broker:1883"
	settings.MQTT.Timeout = 3

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "snapquote", cfg.Topic)
	assert.Contains(t, cfg.ClientID, "snapquote-")
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)

	settings.MQTT.ClientID = "bench-1"
	settings.MQTT.Topic = "shop"
	cfg = ConfigFromSettings(settings)
	assert.Equal(t, "bench-1", cfg.ClientID)
	assert.Equal(t, "shop", cfg.Topic)
}

func TestClientRejectsBadBroker(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = "::not a url"
	c := NewClient(cfg, m)

	err = c.Connect(context.Background())
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, c.IsConnected())

	err = c.Publish(context.Background(), "snapquote/audio", []byte("{}"))
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))

	cfg.Broker = "tcp://unresolvable.invalid:1883"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = NewClient(cfg, m).Connect(ctx)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.InDelta(t, 2, testutil.ToFloat64(m.ConnectsTotal.WithLabelValues(metrics.StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishesTotal.WithLabelValues("snapquote/audio", metrics.StatusError)), 0)

	c.Disconnect()
}
