package detection

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	detectionLogger logger.Logger
	loggerOnce      sync.Once
)

// GetLogger returns the detection module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		detectionLogger = logger.Global().Module("detection")
	})
	return detectionLogger
}
