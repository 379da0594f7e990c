package quote

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	quoteLogger logger.Logger
	loggerOnce  sync.Once
)

// GetLogger returns the quote module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		quoteLogger = logger.Global().Module("quote")
	})
	return quoteLogger
}
