package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// SessionManager tracks all live sessions.
//
// The listener inserts on accept and each session removes itself on close;
// both paths run concurrently across sessions.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxSessions int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int // protected by mu

	logger *slog.Logger
}

// NewSessionManager creates an empty manager. maxSessions 0 means no limit.
func NewSessionManager(maxSessions int, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		logger:      logger.With("component", "session_manager"),
	}
}

// Create builds and registers a session for an accepted connection.
func (sm *SessionManager) Create(conn *websocket.Conn, remoteAddr string, dispatcher *Dispatcher, config *SessionConfig) (*Session, error) {
	sm.mu.Lock()
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessionsReached
	}

	session := newSession(conn, remoteAddr, dispatcher, config, sm.logger)
	session.onClose = sm.remove

	sm.sessions[session.ID] = session
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	active := len(sm.sessions)
	sm.mu.Unlock()

	sm.totalCreated.Add(1)
	metrics.sessionsTotal.Inc()
	metrics.activeSessions.Set(float64(active))

	sm.logger.Info("session created",
		"session_id", session.ID,
		"client", remoteAddr,
		"active_sessions", active)

	return session, nil
}

// remove drops a closed session from the live set. Called by Session.Close.
func (sm *SessionManager) remove(session *Session) {
	sm.mu.Lock()
	_, exists := sm.sessions[session.ID]
	delete(sm.sessions, session.ID)
	active := len(sm.sessions)
	sm.mu.Unlock()

	if exists {
		sm.totalClosed.Add(1)
		metrics.activeSessions.Set(float64(active))
	}
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ForEach iterates over the live sessions. The callback must not block; it
// holds the read lock.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, session := range sm.sessions {
		if !fn(session) {
			break
		}
	}
}

// Stats returns aggregate counters for introspection.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	active := len(sm.sessions)
	peak := sm.peakSessions
	sm.mu.RUnlock()

	return ManagerStats{
		Active:       active,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
		Peak:         peak,
	}
}

// ManagerStats contains aggregated session counters.
type ManagerStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// Shutdown signals every live session to close and waits for them, bounded
// by ctx. In-flight dispatches finish naturally; only the wait is bounded.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(session)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sm.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
		return nil
	case <-ctx.Done():
		sm.logger.Warn("session manager shutdown timed out", "pending", sm.Count())
		return ctx.Err()
	}
}
