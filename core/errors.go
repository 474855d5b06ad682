package core

import (
	"fmt"
)

// ConfigError is a configuration-related error carrying an actionable
// instruction alongside the message.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeConfigFileMissing = "CONFIG_FILE_MISSING"
	ErrCodeConfigParse       = "CONFIG_PARSE"
	ErrCodeMissingAuth       = "MISSING_AUTH"
	ErrCodeInvalidListenAddr = "INVALID_LISTEN_ADDR"
	ErrCodeNoModelsEnabled   = "NO_MODELS_ENABLED"
	ErrCodeUnknownBackend    = "UNKNOWN_BACKEND"
	ErrCodeInvalidTimeout    = "INVALID_TIMEOUT"
)

// ErrConfigFileMissing returns an error for a missing config file.
func ErrConfigFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy config.example.yaml to config.yaml and adjust the model list",
	}
}

// ErrConfigParse returns an error for a config file that fails to parse.
func ErrConfigParse(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigParse,
		Message: fmt.Sprintf("Failed to parse %s: %s", path, reason),
		Action:  "Check the YAML syntax of the configuration file",
	}
}

// ErrMissingAuth returns an error for missing API credentials.
func ErrMissingAuth(service string) *ConfigError {
	var action string
	switch service {
	case "openai":
		action = "Set OPENAI_API_KEY in your environment or .env file, or switch the model backend to mock"
	default:
		action = fmt.Sprintf("Set the required API key for %s in your .env file", service)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", service),
		Action:  action,
	}
}

// ErrInvalidListenAddr returns an error for a malformed listen address.
func ErrInvalidListenAddr(addr string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidListenAddr,
		Message: fmt.Sprintf("Invalid listen address '%s': %s", addr, reason),
		Action:  "Set server.listen_addr to host:port (e.g., :8000 or 127.0.0.1:8000)",
	}
}

// ErrNoModelsEnabled returns an error when the config enables no models.
func ErrNoModelsEnabled() *ConfigError {
	return &ConfigError{
		Code:    ErrCodeNoModelsEnabled,
		Message: "No models are enabled in the configuration",
		Action:  "Enable at least one model under the models section of config.yaml",
	}
}

// ErrUnknownBackend returns an error for an unrecognized model backend name.
func ErrUnknownBackend(modelID, backendName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownBackend,
		Message: fmt.Sprintf("Model %s references unknown backend '%s'", modelID, backendName),
		Action:  "Set the model backend to one of: mock, openai",
	}
}

// ErrInvalidTimeout returns an error for a non-positive timeout setting.
func ErrInvalidTimeout(name string, seconds int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidTimeout,
		Message: fmt.Sprintf("Invalid %s: %d seconds", name, seconds),
		Action:  fmt.Sprintf("Set %s to a positive number of seconds", name),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}
