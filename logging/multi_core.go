package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore builds a zapcore.Core that tees every entry to stdout and
// a rotating log file. The file side always encodes JSON so entries can
// be processed by log tooling. The console side is human-readable in
// development mode and JSON in production mode.
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) (zapcore.Core, error) {
	fileWriter := NewFileWriter(filePath)
	return NewMultiCoreWithWriters(level, zapcore.AddSync(os.Stdout), fileWriter, isDev), nil
}

// NewMultiCoreWithWriters is the writer-injectable variant of NewMultiCore,
// used by tests to capture output in buffers.
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		consoleWriter,
		level,
	)

	return zapcore.NewTee(consoleCore, fileCore)
}
