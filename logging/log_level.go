package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LogLevel is an alias for the zap level type so callers outside this
// package do not need to import zapcore directly.
type LogLevel = zapcore.Level

// Log level constants for convenience
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

// LevelEnvVar is the environment variable consulted for log level overrides.
const LevelEnvVar = "TINYIMG_LOG_LEVEL"

// ParseLogLevel reads a level from the named environment variable.
// An empty or unrecognized value falls back to defaultLevel. Parsing is
// case-insensitive.
//
// Example:
//
//	level := ParseLogLevel(LevelEnvVar, zapcore.InfoLevel)
func ParseLogLevel(envVarName string, defaultLevel zapcore.Level) zapcore.Level {
	value := os.Getenv(envVarName)
	if value == "" {
		return defaultLevel
	}
	return ParseLogLevelString(value, defaultLevel)
}

// ParseLogLevelString parses a log level string directly.
//
// Valid levels: debug, info, warn, warning, error, fatal
func ParseLogLevelString(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return defaultLevel
	}
}
