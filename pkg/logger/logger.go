// Package logger provides the process-wide logger. It wraps
// charmbracelet/log behind the same GetLogger singleton the rest of
// the code base injects through the songprint.Logger interface.
package logger

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	defaultLogger *log.Logger
	once          sync.Once
)

// GetLogger returns the shared logger. The level is taken from
// SONGPRINT_LOG_LEVEL (debug, info, warn, error) and defaults to info.
func GetLogger() *log.Logger {
	once.Do(func() {
		defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "songprint",
		})

		level := log.InfoLevel
		if s := os.Getenv("SONGPRINT_LOG_LEVEL"); s != "" {
			if parsed, err := log.ParseLevel(s); err == nil {
				level = parsed
			}
		}
		defaultLogger.SetLevel(level)
	})
	return defaultLogger
}
