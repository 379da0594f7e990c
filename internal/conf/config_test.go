package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/snapquote/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	settings, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAudioModel, settings.Audio.Model)
	assert.Equal(t, "multiple", settings.Audio.FeatureType)
	assert.Equal(t, 16000, settings.Audio.SampleRate)
	assert.InDelta(t, 0.7, settings.Audio.Threshold, 1e-12)
	assert.InDelta(t, 0.25, settings.Detection.InitialConfidence, 1e-12)
	assert.InDelta(t, 0.05, settings.Detection.FallbackConfidence, 1e-12)
	assert.InDelta(t, 0.05, settings.Detection.SkipFloor, 1e-12)
	assert.Equal(t, DefaultClassMapName, settings.Detection.ClassMap)
	assert.Equal(t, DefaultPricingName, settings.Quote.Pricing)
	assert.Empty(t, settings.Quote.Region)
	assert.False(t, settings.History.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadFileOverrides(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
audio:
  featuretype: mfcc
  threshold: 0.55
detection:
  skipfloor: 0.06
artifacts:
  dirs: [/opt/models, /srv/weights]
`)
	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mfcc", settings.Audio.FeatureType)
	assert.InDelta(t, 0.55, settings.Audio.Threshold, 1e-12)
	assert.InDelta(t, 0.06, settings.Detection.SkipFloor, 1e-12)
	assert.Equal(t, []string{"/opt/models", "/srv/weights"}, settings.Artifacts.Dirs)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("SNAPQUOTE_AUDIO_THRESHOLD", "0.9")
	t.Setenv("SNAPQUOTE_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("SNAPQUOTE_QUOTE_REGION", "pune")

	settings, err := Load(writeConfig(t, "audio:\n  threshold: 0.6\n"))
	require.NoError(t, err)

	assert.InDelta(t, 0.9, settings.Audio.Threshold, 1e-12)
	assert.Equal(t, "tcp://broker:1883", settings.MQTT.Broker)
	assert.Equal(t, "pune", settings.Quote.Region)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	_, err := Load(writeConfig(t, "detection:\n  initialconfidence: 0.04\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Contains(t, err.Error(), "fallbackconfidence must be lower")
}

func TestLoadMalformedFile(t *testing.T) {
	resetViper(t)

	_, err := Load(writeConfig(t, "audio: [unclosed\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, GetDefaultConfig())
	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAudioModel, settings.Audio.Model)
	assert.Equal(t, DefaultInputSize, settings.Detection.InputSize)
}

func TestToYAMLMasksSecrets(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	s.MQTT.Password = "hunter2"
	s.Sentry.DSN = "https://key@sentry.example/1"

	out, err := s.ToYAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.NotContains(t, string(out), "sentry.example")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "detection")
	assert.Equal(t, "hunter2", s.MQTT.Password)
}

func TestLoadResolvesSecrets(t *testing.T) {
	resetViper(t)
	t.Setenv("SNAPQUOTE_TEST_MQTT_PW", "from-env")

	dsnFile := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(dsnFile, []byte("https://key@sentry.example/1\n"), 0o600))

	settings, err := Load(writeConfig(t, "mqtt:\n  password: ${SNAPQUOTE_TEST_MQTT_PW}\nsentry:\n  dsnfile: "+dsnFile+"\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.MQTT.Password)
	assert.Equal(t, "https://key@sentry.example/1", settings.Sentry.DSN)
}

func TestLoadMQTTSettings(t *testing.T) {
	resetViper(t)

	pwFile := filepath.Join(t.TempDir(), "mqtt.pw")
	require.NoError(t, os.WriteFile(pwFile, []byte("s3cret\n"), 0o600))

	settings, err := Load(writeConfig(t, "mqtt:\n  enabled: true\n  password: ignored\n  passwordfile: "+pwFile+
		"\n  retain: true\n  timeout: 5\n"))
	require.NoError(t, err)
	assert.True(t, settings.MQTT.Enabled)
	assert.Equal(t, pwFile, settings.MQTT.PasswordFile)
	assert.Equal(t, "s3cret", settings.MQTT.Password, "secret file wins over the inline value")
	assert.True(t, settings.MQTT.Retain)
	assert.Equal(t, 5, settings.MQTT.Timeout)
}

func TestLoadMissingSecretVariable(t *testing.T) {
	resetViper(t)

	_, err := Load(writeConfig(t, "mqtt:\n  password: ${SNAPQUOTE_TEST_UNSET_PW}\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
