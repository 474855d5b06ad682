// Package httpapi is the HTTP adapter over the generation orchestrator.
// It stays thin: request decoding, parameter mapping, and status code
// translation live here; admission and device policy live below it.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tinyimg/backend"
	"tinyimg/history"
	"tinyimg/imagegen"
	"tinyimg/pool"
	"tinyimg/stats"
)

// Admitter gates request handling during shutdown. Implemented by
// shutdown.Manager; a nil Admitter admits everything.
type Admitter interface {
	WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error
	IsShuttingDown() bool
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// ListenAddr is the host:port to bind (default ":8000").
	ListenAddr string

	// ReadTimeout for requests (default 30s).
	ReadTimeout time.Duration

	// WriteTimeout for responses. Generations can take a while, so the
	// default is generous (default 300s).
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default 120s).
	IdleTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with defaults applied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:   ":8000",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Server wires the HTTP routes to the orchestrator and its
// collaborators:
//
//	POST /generate  run one image generation
//	GET  /status    version, devices, pool and stats snapshot
//	GET  /models    registered model ids
//	GET  /healthz   liveness probe
type Server struct {
	httpServer   *http.Server
	mux          *http.ServeMux
	config       ServerConfig
	logger       *zap.Logger
	orchestrator *imagegen.Orchestrator
	pool         *pool.Pool
	stats        *stats.Tracker
	registry     *backend.Registry
	history      *history.Store // nil disables history fields
	admitter     Admitter       // nil admits everything
}

// Deps carries the collaborators the Server exposes over HTTP.
type Deps struct {
	Orchestrator *imagegen.Orchestrator
	Pool         *pool.Pool
	Stats        *stats.Tracker
	Registry     *backend.Registry
	// History is optional.
	History *history.Store
	// Admitter is optional.
	Admitter Admitter
	Logger   *zap.Logger
}

// NewServer creates a Server with routes and middleware wired.
func NewServer(config ServerConfig, deps Deps) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultServerConfig().ListenAddr
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultServerConfig().ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultServerConfig().WriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultServerConfig().IdleTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mux:          http.NewServeMux(),
		config:       config,
		logger:       logger,
		orchestrator: deps.Orchestrator,
		pool:         deps.Pool,
		stats:        deps.Stats,
		registry:     deps.Registry,
		history:      deps.History,
		admitter:     deps.Admitter,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      s.rootHandler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/generate", s.handleGenerate)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/models", s.handleModels)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) rootHandler() http.Handler {
	mw := NewLoggingMiddleware(s.logger, "/healthz")
	return mw.Handler(s.mux)
}

// Handler returns the full middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying http.Server for shutdown wiring.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Start listens and serves until the server is shut down. Blocks.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
