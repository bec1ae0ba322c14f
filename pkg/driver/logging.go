package driver

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// LogLevel is the severity of a driver-originated log message.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarn
	LogErr
)

// Logger receives log messages originating inside the driver.
type Logger func(level LogLevel, message string)

// DefaultLogger forwards driver log messages to logrus.
func DefaultLogger(level LogLevel, message string) {
	switch level {
	case LogInfo:
		log.Infof("driver: %s", message)
	case LogWarn:
		log.Warnf("driver: %s", message)
	case LogErr:
		log.Errorf("driver: %s", message)
	default:
		log.Errorf("driver: %s (with invalid log level %d)", message, level)
	}
}

var loggerSet atomic.Bool

// SetDefaultLoggerIfUnset registers DefaultLogger with the driver.  Only the first call in a
// process takes effect; later calls are silently ignored, even for a different Binding.
// Callers wanting to replace an already-registered logger must use Binding.SetLogger directly.
func SetDefaultLoggerIfUnset(b Binding) {
	if loggerSet.CompareAndSwap(false, true) {
		b.SetLogger(DefaultLogger)
	}
}
