// Package logging holds the zap logger used for the bridge's own diagnostics.
// Records meant for the host log go through the log package instead.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// Logger returns the package logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger configures the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Named returns a child of the package logger, or of l when it is non-nil.
func Named(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		l = Logger()
	}
	return l.Named(name)
}
