package mqtt

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	mqttLogger logger.Logger
	loggerOnce sync.Once
)

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		mqttLogger = logger.Global().Module("mqtt")
	})
	return mqttLogger
}
