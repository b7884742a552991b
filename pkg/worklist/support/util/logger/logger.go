// Package logger provides a simple leveled logger for the worklist engine.
// It wraps the standard `log` package and filters messages based on the configured level.
package logger

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues, such as dropped status updates.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the application.
	LevelFatal
)

// logLevel holds the current LogLevel. Runners log from worker goroutines, so it is read atomically.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO and a notice is printed.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		logLevel.Store(int32(LevelDebug))
	case "INFO":
		logLevel.Store(int32(LevelInfo))
	case "WARN":
		logLevel.Store(int32(LevelWarn))
	case "ERROR":
		logLevel.Store(int32(LevelError))
	case "FATAL", "SILENT":
		logLevel.Store(int32(LevelFatal))
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel.Store(int32(LevelInfo))
	}
}

// GetLogLevel returns the current log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func enabled(l LogLevel) bool {
	return GetLogLevel() <= l
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
