// Package command defines the command registry shared by all sessions and
// the baseline Godot command handlers.
//
// The registry maps case-sensitive command names to Handler capabilities.
// It is populated once at server construction and read concurrently by
// every session afterwards; the embedding application supplies or replaces
// handlers before the server starts.
package command

import (
	"context"
	"sync"
)

// Handler executes one command invocation.
//
// params is the request's parameter object (never nil), requestID the
// request's correlation token (nil when the client sent null). A handler
// returns a flat success payload or an error; it must not write to the
// connection itself. Handlers may block — each session invokes them on its
// own goroutine — and should honor ctx cancellation for long work.
type Handler interface {
	Invoke(ctx context.Context, params map[string]any, requestID *string) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, params map[string]any, requestID *string) (map[string]any, error)

// Invoke calls the function.
func (f HandlerFunc) Invoke(ctx context.Context, params map[string]any, requestID *string) (map[string]any, error) {
	return f(ctx, params, requestID)
}

// Registry is a concurrency-safe mapping from command name to Handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register inserts or replaces the handler for name. Names are
// case-sensitive exact keys.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterFunc registers a plain function as a handler.
func (r *Registry) RegisterFunc(name string, f HandlerFunc) {
	r.Register(name, f)
}

// Resolve looks up the handler for name. Safe for concurrent use from any
// number of sessions.
func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered command names, for introspection and logs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
