package runtime

import "github.com/tphakala/snapquote/internal/logger"

// GetLogger returns the cli module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cli")
}
