package datastore

import (
	"sync"

	"github.com/tphakala/snapquote/internal/logger"
)

var (
	datastoreLogger logger.Logger
	loggerOnce      sync.Once
)

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		datastoreLogger = logger.Global().Module("datastore")
	})
	return datastoreLogger
}
