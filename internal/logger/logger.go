// Package logger provides the shared structured logger for labflow.
package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance used throughout labflow.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

func init() {
	Logger.SetLevel(parseLevel(os.Getenv("LABFLOW_LOG_LEVEL")))
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel adjusts the global log level.
func SetLevel(level string) {
	Logger.SetLevel(parseLevel(level))
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, keyvals ...any) { Logger.Debug(msg, keyvals...) }

// Info logs an info message with optional key/value pairs.
func Info(msg string, keyvals ...any) { Logger.Info(msg, keyvals...) }

// Warn logs a warning message with optional key/value pairs.
func Warn(msg string, keyvals ...any) { Logger.Warn(msg, keyvals...) }

// Error logs an error message with optional key/value pairs.
func Error(msg string, keyvals ...any) { Logger.Error(msg, keyvals...) }
