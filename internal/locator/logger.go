package locator

import "github.com/tphakala/snapquote/internal/logger"

// GetLogger returns the locator module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("locator")
}
