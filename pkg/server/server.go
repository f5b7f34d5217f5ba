package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/godotkit/mcpbridge/pkg/command"
)

// Server is the MCP bridge listener. It accepts WebSocket connections,
// spawns a Session per connection, and owns graceful shutdown.
type Server struct {
	config     *ServerConfig
	registry   *command.Registry
	dispatcher *Dispatcher
	sessions   *SessionManager
	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server over the given registry, filling unset config fields
// with defaults. The registry is shared read-only by every session.
func New(config *ServerConfig, registry *command.Registry) *Server {
	config = config.withDefaults()
	if registry == nil {
		registry = command.NewRegistry()
	}

	logger := slog.Default().With("component", "server")

	return &Server{
		config:     config,
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger),
		sessions:   NewSessionManager(config.MaxSessions, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

// Handler returns the server's HTTP surface for mounting in external
// routers or tests:
//
//   - GET /        → WebSocket upgrade
//   - GET /ws      → WebSocket upgrade
//   - GET /healthz → liveness probe
//   - GET /metrics → Prometheus exposition
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.HandleWebSocket)
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// HandleWebSocket upgrades the request and starts a session for it. Each
// session runs on its own goroutine, so accepts never block on a session's
// lifetime.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "client", r.RemoteAddr, "error", err)
		return
	}

	conn.SetReadLimit(s.config.SessionConfig.MaxMessageSize)

	session, err := s.sessions.Create(conn, r.RemoteAddr, s.dispatcher, s.config.SessionConfig)
	if err != nil {
		s.logger.Warn("session rejected", "client", r.RemoteAddr, "error", err)
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		conn.Close()
		return
	}

	session.Start()
}

// handleHealth reports liveness and the live session count.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.Count(),
	})
}

// Run binds the listen address and serves until SIGINT/SIGTERM, then shuts
// down gracefully. Failure to bind is the only process-fatal condition and
// is returned with the address in the diagnostic.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			"address", s.config.Address,
			"commands", s.registry.Len())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return fmt.Errorf("listen on %s: %w", s.config.Address, err)
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting new connections and signals all live sessions to
// close, waiting up to ShutdownTimeout for in-flight dispatches to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("session shutdown incomplete", "error", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Registry returns the command registry.
func (s *Server) Registry() *command.Registry {
	return s.registry
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
