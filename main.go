package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"tinyimg/backend"
	"tinyimg/core"
	"tinyimg/core/validation"
	"tinyimg/history"
	"tinyimg/httpapi"
	"tinyimg/imagegen"
	"tinyimg/inventory"
	"tinyimg/logging"
	"tinyimg/pool"
	"tinyimg/shutdown"
	"tinyimg/stats"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// defaultConfigPath is where the server looks for its configuration
// when TINYIMG_CONFIG is not set.
const defaultConfigPath = "config.yaml"

func main() {
	// Service management commands (install/uninstall/start/stop) exit
	// here; no-ops on non-Windows platforms.
	if HandleServiceCommand(os.Args[1:]) {
		return
	}
	if ranAsService, err := RunAsService(); err != nil {
		fmt.Fprintf(os.Stderr, "service error: %v\n", err)
		os.Exit(core.ExitCodeError)
	} else if ranAsService {
		return
	}

	os.Exit(run(nil))
}

// run wires and starts the server, returning the process exit code.
// stop optionally triggers graceful shutdown from outside the process
// signal path (used by the Windows service control manager); nil is
// fine for interactive runs.
func run(stop <-chan struct{}) int {
	// Load .env file if it exists. Use fmt here since the logger isn't
	// initialized yet.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	configPath := core.GetEnvOrDefault("TINYIMG_CONFIG", defaultConfigPath)

	// Run the preflight suite before heavy initialization. It loads and
	// validates the configuration as its first step.
	result := validation.NewValidationSuite(configPath).
		WithShowProgress(true).
		Validate()
	if !result.Success {
		fmt.Fprintf(os.Stderr, "startup validation failed: %v\n", result.GetFirstError())
		return core.ExitCodeError
	}
	cfg := result.Config

	logger, err := logging.NewLogger(cfg.Logging.Development, cfg.Logging.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		// Sync on stdout fails with "invalid argument" on Linux; not
		// worth reporting.
		_ = logger.Sync()
	}()

	logger.Info("starting "+core.AppName,
		zap.String("version", core.GetVersion()),
		zap.String("config", configPath),
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.Duration("generation_timeout", cfg.AcquireTimeout()),
		zap.Bool("history_enabled", cfg.History.Enabled),
		zap.Bool("dev_mode", cfg.Logging.Development),
	)

	// Device inventory is probed once at startup; the pool treats it as
	// immutable for the process lifetime.
	devices, err := inventory.Enumerate(nil, inventory.Options{
		AllowCPUFallback: cfg.Devices.AllowCPUFallback,
	})
	if err != nil {
		logger.Error("device enumeration failed", zap.Error(err))
		return core.ExitCodeError
	}
	if len(devices) == 0 {
		logger.Error("no devices available and CPU fallback is disabled")
		return core.ExitCodeError
	}
	for i := range devices {
		logger.Info("device registered", zap.String("device", devices[i].String()))
	}

	devicePool := pool.New(devices)

	registry := backend.NewRegistry()
	for _, m := range cfg.EnabledModels() {
		switch strings.ToLower(m.Backend) {
		case core.BackendOpenAI:
			registry.Register(m.ID, backend.OpenAILoader(backend.OpenAIConfig{
				APIKey: cfg.OpenAIKey,
			}))
		default:
			registry.Register(m.ID, backend.MockLoader(m.ID,
				time.Duration(m.StepDelayMS)*time.Millisecond))
		}
		logger.Info("model registered",
			zap.String("model", m.ID),
			zap.String("backend", m.Backend),
		)
	}

	tracker := stats.NewTracker(time.Now())

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(history.StoreConfig{
			Path:           cfg.History.Path,
			MigrationsPath: cfg.History.MigrationsPath,
		})
		if err != nil {
			logger.Error("failed to open history database",
				zap.String("path", cfg.History.Path),
				zap.Error(err))
			return core.ExitCodeError
		}
		logger.Info("history database opened", zap.String("path", cfg.History.Path))
	}

	orchestrator := imagegen.New(imagegen.Config{
		Pool:           devicePool,
		Registry:       registry,
		Stats:          tracker,
		History:        store,
		Logger:         logger.Zap(),
		AcquireTimeout: cfg.AcquireTimeout(),
	})

	manager := shutdown.NewManager(logger.Zap())

	serverConfig := httpapi.DefaultServerConfig()
	serverConfig.ListenAddr = cfg.Server.ListenAddr
	server := httpapi.NewServer(serverConfig, httpapi.Deps{
		Orchestrator: orchestrator,
		Pool:         devicePool,
		Stats:        tracker,
		Registry:     registry,
		History:      store,
		Admitter:     manager,
		Logger:       logger.Zap(),
	})

	manager.Register("http-listener", 10, shutdown.StopHTTPServer(server.HTTPServer()))
	if store != nil {
		manager.Register("history-store", 30, shutdown.CloseFunc(store.Close))
	}
	manager.Register("log-flush", 40, shutdown.SyncLogger(logger))

	manager.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			if shutdownErr := manager.Shutdown(); shutdownErr != nil {
				logger.Error("shutdown completed with errors", zap.Error(shutdownErr))
			}
			return core.ExitCodeError
		}
	case <-manager.Context().Done():
	case <-stop:
	}

	if err := manager.Shutdown(); err != nil {
		logger.Error("shutdown completed with errors",
			zap.Error(err),
			zap.Int64("abandoned_operations", manager.ActiveOperations()),
		)
		return core.ExitCodeError
	}

	logger.Info("shutdown complete")
	return core.ExitCodeSuccess
}
