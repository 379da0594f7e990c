package audio

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the audio module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("audio")
	})
	return serviceLogger
}
