package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings for the log file writer.
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
	DefaultCompress   = true
)

// FileWriterConfig controls log file rotation. Zero-value fields fall
// back to the package defaults.
type FileWriterConfig struct {
	// MaxSizeMB is the size in megabytes the file may reach before rotation.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain.
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept before deletion.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool

	// LocalTime uses local time in backup file names instead of UTC.
	LocalTime bool
}

// DefaultFileWriterConfig returns the default rotation configuration.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   DefaultCompress,
		LocalTime:  false,
	}
}

// NewFileWriter returns a rotating WriteSyncer for the given path using
// the default configuration.
func NewFileWriter(path string) zapcore.WriteSyncer {
	return NewFileWriterWithConfig(path, DefaultFileWriterConfig())
}

// NewFileWriterWithConfig returns a rotating WriteSyncer with custom
// rotation settings. Zero-value fields are filled with defaults.
func NewFileWriterWithConfig(path string, config FileWriterConfig) zapcore.WriteSyncer {
	cfg := applyFileWriterDefaults(config)

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	})
}

func applyFileWriterDefaults(config FileWriterConfig) FileWriterConfig {
	result := config

	if result.MaxSizeMB == 0 {
		result.MaxSizeMB = DefaultMaxSizeMB
	}
	if result.MaxBackups == 0 {
		result.MaxBackups = DefaultMaxBackups
	}
	if result.MaxAgeDays == 0 {
		result.MaxAgeDays = DefaultMaxAgeDays
	}
	// Compress defaults cannot be applied here because false is both the
	// zero value and a valid setting. Use DefaultFileWriterConfig as a base.

	return result
}
