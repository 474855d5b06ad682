package validation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tinyimg/core"
	"tinyimg/inventory"
)

// stubProber returns a fixed device list or error.
type stubProber struct {
	devices []inventory.Device
	err     error
}

func (p *stubProber) ProbeDevices() ([]inventory.Device, error) {
	return p.devices, p.err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
server:
  listen_addr: ":8000"
models:
  - id: flux-schnell
    backend: mock
    enabled: true
devices:
  allow_cpu_fallback: true
`

func TestValidationSuite_AllPass(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, validConfig)

	var buf bytes.Buffer
	suite := NewValidationSuite(path).
		WithOutput(&buf).
		WithProber(&stubProber{devices: []inventory.Device{
			{Index: 0, Kind: inventory.KindNvidia, Name: "NVIDIA RTX 4090", Memory: "24576 MiB"},
		}})

	result := suite.Validate()
	if !result.Success {
		t.Fatalf("suite failed: %s", result.Summary())
	}
	if result.Config == nil {
		t.Fatal("result.Config is nil after successful run")
	}
	if result.FailedSteps != 0 {
		t.Errorf("FailedSteps = %d, want 0", result.FailedSteps)
	}

	out := buf.String()
	if !strings.Contains(out, "Device Probe") {
		t.Error("progress output missing device probe step")
	}
	if !strings.Contains(out, "Validation Passed") {
		t.Error("progress output missing summary")
	}
}

func TestValidationSuite_MissingConfig(t *testing.T) {
	var buf bytes.Buffer
	suite := NewValidationSuite(filepath.Join(t.TempDir(), "nope.yaml")).
		WithOutput(&buf)

	result := suite.Validate()
	if result.Success {
		t.Fatal("suite passed with missing config")
	}
	if result.Config != nil {
		t.Error("result.Config should be nil when config load fails")
	}

	// Downstream steps are skipped, not failed.
	skipped := 0
	for _, step := range result.Steps {
		if step.Status == StepSkipped {
			skipped++
		}
	}
	if skipped != 4 {
		t.Errorf("skipped steps = %d, want 4", skipped)
	}

	if result.GetFirstError() == nil {
		t.Error("GetFirstError() = nil, want config error")
	}
}

func TestValidationSuite_NoDevices(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TINYIMG_ALLOW_CPU_FALLBACK", "")
	path := writeConfig(t, `
models:
  - id: flux-schnell
    backend: mock
    enabled: true
devices:
  allow_cpu_fallback: false
`)

	suite := NewValidationSuite(path).
		WithOutput(&bytes.Buffer{}).
		WithProber(&stubProber{})

	result := suite.Validate()
	if result.Success {
		t.Fatal("suite passed with no devices and fallback disabled")
	}
}

func TestValidationSuite_OpenAIWithoutKey(t *testing.T) {
	// Key present at load so config validation passes, absent for the
	// credential check via direct call.
	cfg := &core.Config{
		Models: []core.ModelConfig{
			{ID: "dalle", Backend: core.BackendOpenAI, Enabled: true},
		},
	}

	result := CheckOpenAICredentials(cfg)
	if result.Valid {
		t.Error("credentials check passed without key")
	}

	cfg.OpenAIKey = "sk-present"
	if result := CheckOpenAICredentials(cfg); !result.Valid {
		t.Errorf("credentials check failed with key: %s", result.Message)
	}
}

func TestCheckModels(t *testing.T) {
	cfg := &core.Config{
		Models: []core.ModelConfig{
			{ID: "flux-schnell", Backend: "mock", Enabled: true},
			{ID: "sdxl", Backend: "mock", Enabled: false},
		},
	}

	result := CheckModels(cfg)
	if !result.Valid {
		t.Fatalf("CheckModels failed: %s", result.Message)
	}
	if !strings.Contains(result.Message, "flux-schnell") || strings.Contains(result.Message, "sdxl") {
		t.Errorf("message should list only enabled models: %q", result.Message)
	}

	cfg.Models[0].Backend = "quantum"
	if result := CheckModels(cfg); result.Valid {
		t.Error("CheckModels passed with unknown backend")
	}
}

func TestCheckHistoryDatabase(t *testing.T) {
	result := CheckHistoryDatabase(core.HistoryConfig{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if !result.Valid {
		t.Fatalf("history check failed: %v", result.Error)
	}
}

func TestCheckFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CheckFileExists(file); err != nil {
		t.Errorf("existing file reported missing: %v", err)
	}
	if err := CheckFileExists(filepath.Join(dir, "absent.txt")); err == nil {
		t.Error("missing file reported present")
	}
	if err := CheckFileExists(dir); err == nil {
		t.Error("directory accepted as file")
	}
	if err := CheckFileExists(""); err == nil {
		t.Error("empty path accepted")
	}
}
