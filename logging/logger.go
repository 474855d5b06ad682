package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with automatic sensitive data redaction and
// dual console/file output.
//
// It composes:
//   - FileWriter (log file rotation via lumberjack)
//   - MultiCore (tee output to console + file)
//   - the sensitive filter (API key redaction)
//
// Example:
//
//	logger, err := NewLogger(true, "tinyimg.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.String("addr", ":8080"))
type Logger struct {
	zap           *zap.Logger
	sugar         *zap.SugaredLogger
	isDevelopment bool
	logFilePath   string
}

// NewLogger builds a Logger for the given environment.
//
// Development mode defaults to debug level with colored console output;
// production mode defaults to info level with JSON output. Either default
// can be overridden through the TINYIMG_LOG_LEVEL environment variable.
// The log file rotates at 100MB with 5 backups kept for 30 days.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevel(LevelEnvVar, defaultLevel)

	core, err := NewMultiCore(level, logFilePath, isDevelopment)
	if err != nil {
		return nil, fmt.Errorf("failed to create log core: %w", err)
	}

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // skip this wrapper layer
	)

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewLoggerWithConfig is NewLogger with custom file rotation settings.
func NewLoggerWithConfig(isDevelopment bool, logFilePath string, fileConfig FileWriterConfig) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevel(LevelEnvVar, defaultLevel)

	fileWriter := NewFileWriterWithConfig(logFilePath, fileConfig)
	core := NewMultiCoreWithWriters(level, zapcore.AddSync(os.Stdout), fileWriter, isDevelopment)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

// Info logs a message at InfoLevel with optional structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

// Warn logs a message at WarnLevel with optional structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

// Error logs a message at ErrorLevel with optional structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, l.redactFields(fields)...)
}

// Panic logs a message at PanicLevel then panics.
func (l *Logger) Panic(msg string, fields ...zap.Field) {
	l.zap.Panic(msg, l.redactFields(fields)...)
}

// Debugw logs a message with loosely-typed key-value pairs.
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Infow logs a message with loosely-typed key-value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Warnw logs a message with loosely-typed key-value pairs.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Errorw logs a message with loosely-typed key-value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Debugf logs a formatted message at DebugLevel.
func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

// Infof logs a formatted message at InfoLevel.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// Warnf logs a formatted message at WarnLevel.
func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

// Errorf logs a formatted message at ErrorLevel.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// Fatalf logs a formatted message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.sugar.Fatalf(template, args...)
}

// With creates a child logger that includes the given fields in every
// entry. Useful for request-scoped context.
//
// Example:
//
//	reqLog := logger.With(zap.String("request_id", id))
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:           l.zap.With(l.redactFields(fields)...),
		sugar:         l.sugar.With(l.redactFieldsToInterface(fields)...),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named adds a sub-logger name that appears in log output.
func (l *Logger) Named(name string) *Logger {
	newZap := l.zap.Named(name)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Sugar returns the underlying sugared logger.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap.Logger for components that take one
// directly. Redaction does not apply to entries written through it.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger is in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path of the log file.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

// redactFields filters sensitive data from zap.Field values before
// every log operation.
func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = l.redactField(field)
	}
	return result
}

func (l *Logger) redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}

	if field.Type == zapcore.StringType {
		redacted := RedactSensitiveData(field.String)
		if redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}

	return field
}

// redactKeysAndValues filters sensitive data from sugared key-value pairs.
func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}

	result := make([]interface{}, len(keysAndValues))
	copy(result, keysAndValues)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		if IsSensitiveField(key) {
			result[i+1] = RedactedPlaceholder
			continue
		}

		if value, ok := result[i+1].(string); ok {
			result[i+1] = RedactSensitiveData(value)
		}
	}

	return result
}

func (l *Logger) redactFieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		redacted := l.redactField(field)
		result = append(result, redacted.Key, redacted.String)
	}
	return result
}
