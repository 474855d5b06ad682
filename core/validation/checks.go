package validation

import (
	"fmt"
	"strings"

	"tinyimg/core"
	"tinyimg/history"
	"tinyimg/inventory"
)

// ValidationResult represents the outcome of a single preflight check.
type ValidationResult struct {
	Valid   bool
	Message string
	Error   error
}

// CheckConfigFile verifies the config file exists and parses cleanly.
// Returns the loaded config for subsequent checks.
func CheckConfigFile(path string) (*core.Config, ValidationResult) {
	if err := CheckFileExists(path); err != nil {
		return nil, ValidationResult{
			Valid:   false,
			Message: "Configuration file not found. Copy config.example.yaml to config.yaml.",
			Error:   core.ErrConfigFileMissing(path),
		}
	}

	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, ValidationResult{
			Valid:   false,
			Message: "Configuration failed to load",
			Error:   err,
		}
	}

	return cfg, ValidationResult{
		Valid:   true,
		Message: "Configuration loaded",
	}
}

// CheckModels verifies at least one model is enabled and every enabled
// model names a known backend.
func CheckModels(cfg *core.Config) ValidationResult {
	enabled := cfg.EnabledModels()
	if len(enabled) == 0 {
		return ValidationResult{
			Valid:   false,
			Message: "No models enabled. Enable at least one model in config.yaml.",
			Error:   core.ErrNoModelsEnabled(),
		}
	}

	ids := make([]string, 0, len(enabled))
	for _, m := range enabled {
		switch strings.ToLower(m.Backend) {
		case core.BackendMock, core.BackendOpenAI:
		default:
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("Model %s uses unknown backend %q", m.ID, m.Backend),
				Error:   core.ErrUnknownBackend(m.ID, m.Backend),
			}
		}
		ids = append(ids, m.ID)
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d model(s) enabled: %s", len(ids), strings.Join(ids, ", ")),
	}
}

// CheckDevices probes the hardware and reports what the pool will manage.
func CheckDevices(prober inventory.Prober, allowCPUFallback bool) ValidationResult {
	devices, err := inventory.Enumerate(prober, inventory.Options{
		AllowCPUFallback: allowCPUFallback,
	})
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Device probe failed",
			Error:   err,
		}
	}
	if len(devices) == 0 {
		return ValidationResult{
			Valid:   false,
			Message: "No accelerators found and CPU fallback is disabled",
			Error:   fmt.Errorf("no usable devices"),
		}
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d device(s): %s", len(devices), strings.Join(names, ", ")),
	}
}

// CheckHistoryDatabase opens the history database to confirm the path is
// writable and migrations apply.
func CheckHistoryDatabase(cfg core.HistoryConfig) ValidationResult {
	store, err := history.Open(history.StoreConfig{
		Path:           cfg.Path,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("History database unavailable at %s", cfg.Path),
			Error:   err,
		}
	}
	if err := store.Close(); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "History database failed to close cleanly",
			Error:   err,
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("History database ready at %s", cfg.Path),
	}
}

// CheckOpenAICredentials verifies the API key is present when any
// enabled model uses the openai backend.
func CheckOpenAICredentials(cfg *core.Config) ValidationResult {
	needed := false
	for _, m := range cfg.EnabledModels() {
		if strings.ToLower(m.Backend) == core.BackendOpenAI {
			needed = true
			break
		}
	}
	if !needed {
		return ValidationResult{
			Valid:   true,
			Message: "No OpenAI-backed models enabled",
		}
	}

	if cfg.OpenAIKey == "" {
		return ValidationResult{
			Valid:   false,
			Message: "OPENAI_API_KEY is not set",
			Error:   core.ErrMissingAuth("openai"),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "OpenAI credentials present",
	}
}
