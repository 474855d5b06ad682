package core

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the model configuration.
const (
	BackendMock   = "mock"
	BackendOpenAI = "openai"
)

// Defaults applied when config.yaml omits a setting.
const (
	DefaultListenAddr        = ":8000"
	DefaultGenerationTimeout = 60 // seconds
	DefaultHistoryPath       = "data/history.db"
	DefaultLogFilePath       = "tinyimg.log"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DeviceConfig holds device enumeration settings.
type DeviceConfig struct {
	// AllowCPUFallback registers a CPU pseudo-device when no GPU is found.
	AllowCPUFallback bool `yaml:"allow_cpu_fallback"`
}

// ModelConfig describes one entry of the enabled model list.
type ModelConfig struct {
	ID      string `yaml:"id"`
	Backend string `yaml:"backend"`
	Enabled bool   `yaml:"enabled"`

	// StepDelayMS simulates per-step work in the mock backend.
	StepDelayMS int `yaml:"step_delay_ms"`
}

// HistoryConfig holds generation history database settings.
type HistoryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MigrationsPath string `yaml:"migrations_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Development bool   `yaml:"development"`
	FilePath    string `yaml:"file"`
}

// Config is the full server configuration, loaded from config.yaml with
// environment variable overrides applied on top.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// ImageGenerationTimeout is the maximum time a request waits for a
	// free device before being rejected as busy, in seconds.
	ImageGenerationTimeout int `yaml:"image_generation_timeout"`

	Devices DeviceConfig  `yaml:"devices"`
	Models  []ModelConfig `yaml:"models"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`

	// OpenAIKey comes from the environment only, never from the YAML file.
	OpenAIKey string `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileMissing(path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ErrConfigParse(path, err.Error())
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with defaults and mock models,
// used when no config file is supplied.
func DefaultConfig() *Config {
	cfg := &Config{
		Models: []ModelConfig{
			{ID: "flux-schnell", Backend: BackendMock, Enabled: true},
			{ID: "sdxl", Backend: BackendMock, Enabled: true},
		},
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.ImageGenerationTimeout == 0 {
		c.ImageGenerationTimeout = DefaultGenerationTimeout
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFilePath
	}
}

func (c *Config) applyEnvOverrides() {
	c.Server.ListenAddr = GetEnvOrDefault("TINYIMG_LISTEN_ADDR", c.Server.ListenAddr)
	c.ImageGenerationTimeout = ParseIntEnv("TINYIMG_GENERATION_TIMEOUT", c.ImageGenerationTimeout)
	c.Devices.AllowCPUFallback = ParseBoolEnv("TINYIMG_ALLOW_CPU_FALLBACK", c.Devices.AllowCPUFallback)
	c.History.Path = GetEnvOrDefault("TINYIMG_HISTORY_PATH", c.History.Path)
	c.Logging.FilePath = GetEnvOrDefault("TINYIMG_LOG_FILE", c.Logging.FilePath)
	c.Logging.Development = ParseBoolEnv("TINYIMG_DEV_MODE", c.Logging.Development)
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
}

// Validate checks the configuration for errors a server start would
// otherwise hit later. Returns a *ConfigError describing the first
// problem found.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.ListenAddr); err != nil {
		return ErrInvalidListenAddr(c.Server.ListenAddr, err.Error())
	}

	if c.ImageGenerationTimeout <= 0 {
		return ErrInvalidTimeout("image_generation_timeout", c.ImageGenerationTimeout)
	}

	enabled := c.EnabledModels()
	if len(enabled) == 0 {
		return ErrNoModelsEnabled()
	}

	for _, m := range enabled {
		switch strings.ToLower(m.Backend) {
		case BackendMock, BackendOpenAI:
		default:
			return ErrUnknownBackend(m.ID, m.Backend)
		}
		if strings.ToLower(m.Backend) == BackendOpenAI && c.OpenAIKey == "" {
			return ErrMissingAuth("openai")
		}
	}

	return nil
}

// EnabledModels returns the models marked enabled, in config order.
func (c *Config) EnabledModels() []ModelConfig {
	enabled := make([]ModelConfig, 0, len(c.Models))
	for _, m := range c.Models {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled
}

// AcquireTimeout returns the generation timeout as a duration.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.ImageGenerationTimeout) * time.Second
}
