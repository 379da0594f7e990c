package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSettings() Settings {
	return Settings{
		Logging: LoggingSettings{Level: "info"},
		Audio: AudioSettings{
			Model:       DefaultAudioModel,
			FeatureType: DefaultFeatureType,
			SampleRate:  DefaultSampleRate,
			Threshold:   DefaultAudioThreshold,
			MaxDuration: DefaultMaxDuration,
		},
		Detection: DetectionSettings{
			InitialConfidence:  DefaultInitialConfidence,
			FallbackConfidence: DefaultFallbackConfidence,
			SkipFloor:          DefaultFallbackConfidence,
			IoU:                DefaultIoU,
			InputSize:          DefaultInputSize,
		},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad feature type", func(s *Settings) { s.Audio.FeatureType = "mel" }, "audio.featuretype"},
		{"zero threshold", func(s *Settings) { s.Audio.Threshold = 0 }, "audio.threshold"},
		{"threshold above one", func(s *Settings) { s.Audio.Threshold = 1.5 }, "audio.threshold"},
		{"threshold of one allowed", func(s *Settings) { s.Audio.Threshold = 1 }, ""},
		{"fallback not lower", func(s *Settings) { s.Detection.FallbackConfidence = 0.25 }, "fallbackconfidence"},
		{"input size", func(s *Settings) { s.Detection.InputSize = 600 }, "inputsize"},
		{"log level", func(s *Settings) { s.Logging.Level = "loud" }, "logging.level"},
		{"history type", func(s *Settings) { s.History = HistorySettings{Enabled: true, Type: "mongo"} }, "history.type"},
		{"disabled history ignored", func(s *Settings) { s.History = HistorySettings{Type: "mongo"} }, ""},
		{"mqtt without broker", func(s *Settings) { s.MQTT = MQTTSettings{Enabled: true, Topic: "t", Timeout: 1} }, "mqtt.broker"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(&s)
			err := ValidateSettings(&s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBool(" true "))
	assert.Error(t, validateEnvBool("yes"))
	assert.NoError(t, validateEnvProbability("0.25"))
	assert.Error(t, validateEnvProbability("0"))
	assert.Error(t, validateEnvProbability("abc"))
	assert.NoError(t, validateEnvThreads("0"))
	assert.Error(t, validateEnvThreads("-1"))
	assert.NoError(t, validateEnvFeatureType("mfcc"))
	assert.Error(t, validateEnvFeatureType("chroma"))
	assert.Error(t, validateEnvHistoryType("postgres"))
}
