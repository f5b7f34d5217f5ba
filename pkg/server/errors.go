package server

import "errors"

// Sentinel errors for session and server conditions.
var (
	// ErrSessionClosed is returned when a send is attempted on a closed
	// session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrMaxSessionsReached is returned when the configured session limit
	// is hit during accept.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrServerClosed is returned when the listener has stopped accepting.
	ErrServerClosed = errors.New("server: closed")
)
