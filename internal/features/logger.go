package features

import "github.com/tphakala/snapquote/internal/logger"

// GetLogger returns the features module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("features")
}
