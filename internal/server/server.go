package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coco-ai/tool-service/internal/events"
	"github.com/coco-ai/tool-service/internal/history"
	"github.com/coco-ai/tool-service/internal/metrics"
	"github.com/coco-ai/tool-service/pkg/tool"
)

// Options holds server configuration
type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Version        string
}

// Server is the tool invocation HTTP server
type Server struct {
	options      Options
	server       *http.Server
	registry     *tool.Registry
	dispatcher   *tool.Dispatcher
	metrics      *metrics.Metrics
	historyStore *history.Store
	broadcaster  *events.Broadcaster
	logger       zerolog.Logger
	startTime    time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// Config wires the server's collaborators. Metrics, History and Broadcaster
// are optional; the matching endpoints answer 404 when absent.
type Config struct {
	Options     Options
	Registry    *tool.Registry
	Dispatcher  *tool.Dispatcher
	Metrics     *metrics.Metrics
	History     *history.Store
	Broadcaster *events.Broadcaster
	Logger      zerolog.Logger
}

// NewServer creates a new tool server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Options.Port == 0 {
		cfg.Options.Port = 1601
	}
	if cfg.Options.Host == "" {
		cfg.Options.Host = "0.0.0.0"
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return &Server{
		options:      cfg.Options,
		registry:     cfg.Registry,
		dispatcher:   cfg.Dispatcher,
		metrics:      cfg.Metrics,
		historyStore: cfg.History,
		broadcaster:  cfg.Broadcaster,
		logger:       cfg.Logger,
		startTime:    time.Now(),
	}, nil
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("GET /tools/{name}", s.handleGetTool)
	mux.HandleFunc("POST /tools/{name}/execute", s.handleExecute)
	mux.HandleFunc("POST /tools/batch", s.handleBatch)
	mux.HandleFunc("GET /executions", s.handleExecutions)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.broadcaster != nil {
		mux.HandleFunc("GET /ws", s.broadcaster.HandleWebSocket)
	}

	return s.withMiddleware(mux)
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Int("tools", s.registry.Count()).
		Msg("Starting tool server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start tool server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down tool server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.broadcaster != nil {
		s.broadcaster.Close()
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tool server: %w", err)
		}
	}

	s.logger.Info().Msg("Tool server stopped")
	return nil
}
