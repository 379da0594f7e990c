package inference

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	inferenceLogger logger.Logger
	loggerOnce      sync.Once
)

// GetLogger returns the inference module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		inferenceLogger = logger.Global().Module("inference")
	})
	return inferenceLogger
}
