package undervolt

import "github.com/go-logr/logr"

// log is the package logger. Everything is discarded until the caller
// installs a real sink with SetLogger.
var log = logr.Discard()

// SetLogger routes this package's log output through logger.
func SetLogger(logger logr.Logger) {
	log = logger
}
