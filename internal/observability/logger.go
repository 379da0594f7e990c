package observability

import "github.com/tphakala/snapquote/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("observability")
}
