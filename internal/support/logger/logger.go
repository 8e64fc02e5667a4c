// Package logger provides the leveled logging utility shared by all ETL
// components. It wraps the standard `log` package and filters messages by a
// globally configured level.
package logger

import (
	"log"
	"strings"
)

// LogLevel represents a logging verbosity level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var logLevel = LevelInfo

// SetLogLevel sets the global log level. Valid values are "DEBUG", "INFO",
// "WARN", "ERROR" and "FATAL" (case-insensitive); anything else falls back to
// INFO with a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = LevelDebug
	case "INFO":
		logLevel = LevelInfo
	case "WARN":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL":
		logLevel = LevelFatal
	default:
		log.Printf("[WARN] Unknown log level %q, defaulting to INFO.", level)
		logLevel = LevelInfo
	}
}

// Debugf logs a DEBUG message.
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof logs an INFO message.
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf logs a WARN message.
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf logs an ERROR message.
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf logs a FATAL message and terminates the process.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
