// Package common holds small pieces of ambient infrastructure — logging and
// settings — shared by the storage engine, the TCP server, and the client.
package common

import (
	"fmt"
	"os"
	"time"

	"github.com/agilira/go-timecache"
)

// Log levels understood by Logger.Printf.
const (
	levelInfo  = "INFO"
	levelWarn  = "WARN"
	levelError = "ERROR"
	levelDebug = "DEBUG"
)

// Logger is a small leveled logger. Each instance is tagged with a component
// name (the server binary uses "server" and "engine", the engine's AOF
// writer shares the engine's instance, an embedded client uses "client") so
// log lines can be told apart without a structured logging framework.
// Timestamps come from go-timecache's cached clock rather than time.Now().
type Logger struct {
	component string
}

// NewLogger returns a Logger that prefixes every line with component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...interface{}) { l.Printf(levelInfo, format, v...) }

// Warn logs a warning message.
func (l *Logger) Warn(format string, v ...interface{}) { l.Printf(levelWarn, format, v...) }

// Error logs an error message.
func (l *Logger) Error(format string, v ...interface{}) { l.Printf(levelError, format, v...) }

// Debug logs a debug message.
func (l *Logger) Debug(format string, v ...interface{}) { l.Printf(levelDebug, format, v...) }

// Printf logs a formatted message at the given level.
func (l *Logger) Printf(level string, format string, v ...interface{}) {
	ts := time.Unix(0, timecache.CachedTimeNano()).Format("2006-01-02 15:04:05")
	line := fmt.Sprintf(format, v...)
	fmt.Fprintf(os.Stderr, "%s [%s] [%s] %s\n", ts, level, l.component, line)
}
