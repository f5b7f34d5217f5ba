package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/godotkit/mcpbridge/pkg/protocol"
)

// Session owns one client connection.
//
// Its lifecycle is Open → Closing → Closed: the read loop runs while Open,
// any transport fault or shutdown signal begins Closing, and Closed
// releases the connection and removes the session from the live set.
// Messages are processed strictly sequentially — request N's response is
// written before request N+1 is read — so responses never reorder within a
// connection.
type Session struct {
	// Identity
	ID         string
	RemoteAddr string // client address:port captured at accept time
	CreatedAt  time.Time

	// Connection
	conn   *websocket.Conn
	mu     sync.Mutex // protects conn writes
	closed atomic.Bool
	done   chan struct{}

	// Cancelled when the session begins closing; handlers receive it.
	ctx    context.Context
	cancel context.CancelFunc

	dispatcher *Dispatcher
	config     *SessionConfig
	logger     *slog.Logger
	onClose    func(*Session)

	// Counters
	requestsHandled atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a session for an accepted connection.
func newSession(conn *websocket.Conn, remoteAddr string, dispatcher *Dispatcher, config *SessionConfig, logger *slog.Logger) *Session {
	id := generateSessionID()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
		conn:       conn,
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With("session_id", id, "client", remoteAddr),
	}
}

// Start begins the session's read loop on its own goroutine.
func (s *Session) Start() {
	go s.ReadLoop()
}

// ReadLoop receives messages until the connection closes or the session is
// shut down. Each message runs decode → dispatch → encode → send; a
// content-level fault produces an error envelope and the loop continues.
// This method blocks and is run on the session's goroutine.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		if s.config.IdleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
			} else {
				s.logger.Info("client disconnected")
			}
			return
		}

		s.bytesReceived.Add(uint64(len(payload)))
		metrics.bytesReceived.Add(float64(len(payload)))

		resp := s.dispatcher.HandleMessage(s.ctx, payload)

		if err := s.writeResponse(resp); err != nil {
			if err != ErrSessionClosed {
				s.logger.Error("write error", "error", err)
			}
			return
		}
		s.requestsHandled.Add(1)
	}
}

// writeResponse encodes and sends one response envelope.
func (s *Session) writeResponse(resp *protocol.Response) error {
	payload := protocol.EncodeResponse(resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}

	s.bytesSent.Add(uint64(len(payload)))
	metrics.bytesSent.Add(float64(len(payload)))
	return nil
}

// Close transitions the session to Closed. Safe to call from any goroutine
// and idempotent; the first caller sends a best-effort close frame, releases
// the connection, and notifies the manager.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.cancel()

	// Best-effort close frame so well-behaved peers see a clean shutdown.
	// In-flight responses are not waited for once closing begins.
	s.mu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.mu.Unlock()

	s.conn.Close()

	if s.onClose != nil {
		s.onClose(s)
	}

	s.logger.Info("session closed",
		"requests_handled", s.requestsHandled.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_received", s.bytesReceived.Load())
}

// IsClosed reports whether the session has begun closing.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel closed when the session begins closing.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// RequestsHandled returns the number of requests answered so far.
func (s *Session) RequestsHandled() uint64 {
	return s.requestsHandled.Load()
}
