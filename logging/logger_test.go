package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// syncLogger calls Sync() and swallows the "invalid argument" error that
// syncing stdout returns on Linux.
func syncLogger(t testing.TB, logger *Logger) {
	t.Helper()
	if err := logger.Sync(); err != nil {
		if strings.Contains(err.Error(), "invalid argument") {
			return
		}
		t.Logf("Sync() warning: %v", err)
	}
}

func TestNewLogger_Development(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dev.log")

	logger, err := NewLogger(true, logPath)
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}
	defer syncLogger(t, logger)

	if !logger.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if logger.LogFilePath() != logPath {
		t.Errorf("LogFilePath() = %q, want %q", logger.LogFilePath(), logPath)
	}

	logger.Info("test message", zap.String("key", "value"))
	syncLogger(t, logger)

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("log file stat error: %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty, expected content")
	}
}

func TestNewLogger_FileOutputIsJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "prod.log")

	logger, err := NewLogger(false, logPath)
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}

	logger.Info("structured entry", zap.String("model", "flux-schnell"))
	syncLogger(t, logger)

	f, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("log file has no lines")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry[FieldMessage] != "structured entry" {
		t.Errorf("message field = %v, want %q", entry[FieldMessage], "structured entry")
	}
	if entry["model"] != "flux-schnell" {
		t.Errorf("model field = %v, want %q", entry["model"], "flux-schnell")
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "redact.log")

	logger, err := NewLogger(false, logPath)
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}

	logger.Info("config loaded",
		zap.String("OPENAI_API_KEY", "sk-supersecretvalue1234567890"),
		zap.String("note", "key is sk-supersecretvalue1234567890"))
	syncLogger(t, logger)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)

	if strings.Contains(content, "sk-supersecretvalue") {
		t.Error("log file contains unredacted API key")
	}
	if !strings.Contains(content, RedactedPlaceholder) {
		t.Error("log file missing redaction placeholder")
	}
}

func TestLogger_With(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "with.log")

	logger, err := NewLogger(false, logPath)
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}

	child := logger.With(zap.String("request_id", "req-42"))
	child.Info("child entry")
	syncLogger(t, logger)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "req-42") {
		t.Error("child logger field missing from output")
	}
}

func TestNewLoggerWithConfig(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "custom.log")

	cfg := FileWriterConfig{
		MaxSizeMB:  10,
		MaxBackups: 2,
		MaxAgeDays: 3,
		Compress:   false,
	}
	logger, err := NewLoggerWithConfig(false, logPath, cfg)
	if err != nil {
		t.Fatalf("NewLoggerWithConfig() returned error: %v", err)
	}

	logger.Info("entry")
	syncLogger(t, logger)

	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("log file stat error: %v", err)
	}
}
