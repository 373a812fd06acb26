package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/engine"
)

// EventSource is implemented by the engine coordinator: it exposes the
// channel of transitions/signals the dashboard broadcasts to connected
// clients.
type EventSource interface {
	DashboardEvents() <-chan engine.DashboardEvent
}

// Server runs the read-only HTTP/WebSocket dashboard API (§6
// "dashboard / read-only snapshot API").
type Server struct {
	cfg      config.DashboardConfig
	provider Provider
	events   EventSource
	fullCfg  config.Config
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(
	cfg config.DashboardConfig,
	provider Provider,
	events EventSource,
	fullCfg config.Config,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, fullCfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		events:   events,
		fullCfg:  fullCfg,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the API server and hub.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeEvents reads events from the engine and broadcasts them.
func (s *Server) consumeEvents() {
	ch := s.events.DashboardEvents()
	if ch == nil {
		return
	}
	for evt := range ch {
		s.hub.BroadcastEvent(fromEngineEvent(evt))
	}
}
