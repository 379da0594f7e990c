package analysis

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	analysisLogger logger.Logger
	loggerOnce     sync.Once
)

// GetLogger returns the analysis module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		analysisLogger = logger.Global().Module("analysis")
	})
	return analysisLogger
}
