// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Defaults shared with the packages that consume them.
const (
	DefaultAudioModel         = "toycar_anomaly_detector_improved.tflite"
	DefaultScalerName         = "scaler.json"
	DefaultClassMapName       = "class_map.json"
	DefaultPricingName        = "part_cost.json"
	DefaultFeatureType        = "multiple"
	DefaultSampleRate         = 16000
	DefaultAudioThreshold     = 0.7
	DefaultMaxDuration        = 10.0
	DefaultInitialConfidence  = 0.25
	DefaultFallbackConfidence = 0.05
	DefaultIoU                = 0.45
	DefaultInputSize          = 640
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.timezone", "Local")

	viper.SetDefault("audio.model", DefaultAudioModel)
	viper.SetDefault("audio.scaler", "")
	viper.SetDefault("audio.featuretype", DefaultFeatureType)
	viper.SetDefault("audio.samplerate", DefaultSampleRate)
	viper.SetDefault("audio.threshold", DefaultAudioThreshold)
	viper.SetDefault("audio.maxduration", DefaultMaxDuration)
	viper.SetDefault("audio.threads", 0)

	viper.SetDefault("detection.initialconfidence", DefaultInitialConfidence)
	viper.SetDefault("detection.fallbackconfidence", DefaultFallbackConfidence)
	viper.SetDefault("detection.skipfloor", DefaultFallbackConfidence)
	viper.SetDefault("detection.iou", DefaultIoU)
	viper.SetDefault("detection.inputsize", DefaultInputSize)
	viper.SetDefault("detection.classmap", DefaultClassMapName)
	viper.SetDefault("detection.threads", 0)

	viper.SetDefault("quote.pricing", DefaultPricingName)
	viper.SetDefault("quote.region", "")

	viper.SetDefault("artifacts.dirs", []string{})

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.type", "sqlite")
	viper.SetDefault("history.sqlite.path", "snapquote.db")
	viper.SetDefault("history.mysql.host", "localhost")
	viper.SetDefault("history.mysql.port", "3306")
	viper.SetDefault("history.mysql.username", "")
	viper.SetDefault("history.mysql.password", "")
	viper.SetDefault("history.mysql.passwordfile", "")
	viper.SetDefault("history.mysql.database", "snapquote")

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "snapquote")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.passwordfile", "")
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.timeout", 10)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.dsnfile", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
}
