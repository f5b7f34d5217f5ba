package server

import (
	"net/http"
	"time"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// WriteTimeout is the maximum time to wait when sending a response.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// IdleTimeout closes a session that has not sent a message for this
	// long. 0 waits indefinitely for the next message, which is the
	// protocol's baseline behavior.
	// Default: 0 (no idle timeout).
	IdleTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 1MB.
	MaxMessageSize int64
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    0,
		MaxMessageSize: 1 << 20,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ServerConfig holds configuration for the listener.
type ServerConfig struct {
	// Address is the address to listen on.
	// Default: "localhost:8765".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the Origin header during upgrade. The bridge
	// serves local editor tooling, so the default accepts any origin.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// ShutdownTimeout bounds the grace period for in-flight dispatches
	// during shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	// Default: 0.
	MaxSessions int

	// ReadHeaderTimeout is the HTTP server's header read timeout for the
	// upgrade request.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           "localhost:8765",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(r *http.Request) bool { return true },
		SessionConfig:     DefaultSessionConfig(),
		ShutdownTimeout:   10 * time.Second,
		MaxSessions:       0,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	if c == nil {
		return DefaultServerConfig()
	}
	defaults := DefaultServerConfig()
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = defaults.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = defaults.CheckOrigin
	}
	if c.SessionConfig == nil {
		c.SessionConfig = defaults.SessionConfig
	}
	if c.SessionConfig.WriteTimeout == 0 {
		c.SessionConfig.WriteTimeout = defaults.SessionConfig.WriteTimeout
	}
	if c.SessionConfig.MaxMessageSize == 0 {
		c.SessionConfig.MaxMessageSize = defaults.SessionConfig.MaxMessageSize
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	return c
}
