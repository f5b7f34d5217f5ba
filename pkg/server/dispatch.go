package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/godotkit/mcpbridge/pkg/command"
	"github.com/godotkit/mcpbridge/pkg/protocol"
)

// tracerName identifies dispatch spans on the global tracer provider.
const tracerName = "mcpbridge"

// Dispatcher turns decoded requests into response envelopes.
//
// It resolves the handler from the registry, invokes it, and contains every
// handler fault — error returns and panics alike — so that no request can
// terminate its session. Dispatch performs no I/O of its own.
type Dispatcher struct {
	registry *command.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *command.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "dispatcher"),
		tracer:   otel.Tracer(tracerName),
	}
}

// HandleMessage decodes one raw message payload and dispatches it.
//
// A payload that fails to decode yields an error response carrying the
// envelope's id when one was recoverable, or a null id for malformed JSON.
func (d *Dispatcher) HandleMessage(ctx context.Context, payload []byte) *protocol.Response {
	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		metrics.decodeErrors.Inc()
		var de *protocol.DecodeError
		if errors.As(err, &de) {
			d.logger.Warn("request decode failed", "reason", de.Reason)
			return protocol.NewError(de.RequestID, de.Reason)
		}
		return protocol.NewError(nil, fmt.Sprintf("Invalid JSON: %v", err))
	}
	return d.Dispatch(ctx, req)
}

// Dispatch resolves and invokes the handler for a decoded request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	// Decode already rejects empty commands; kept as defense in depth for
	// requests constructed in-process.
	if req.Command == "" {
		return protocol.NewError(req.ID, protocol.MissingCommandMessage)
	}

	handler, ok := d.registry.Resolve(req.Command)
	if !ok {
		metrics.commandsTotal.WithLabelValues(req.Command, "error").Inc()
		d.logger.Warn("unknown command", "command", req.Command)
		return protocol.NewError(req.ID, fmt.Sprintf("Unknown command: %s", req.Command))
	}

	ctx, span := d.tracer.Start(ctx, "dispatch "+req.Command,
		trace.WithAttributes(attribute.String("mcp.command", req.Command)))
	defer span.End()

	start := time.Now()
	data, err := d.invoke(ctx, handler, req)
	metrics.dispatchDuration.WithLabelValues(req.Command).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.commandsTotal.WithLabelValues(req.Command, "error").Inc()
		d.logger.Error("command failed", "command", req.Command, "error", err)
		return protocol.NewError(req.ID, fmt.Sprintf("Internal error: %v", err))
	}

	span.SetStatus(codes.Ok, "")
	metrics.commandsTotal.WithLabelValues(req.Command, "success").Inc()

	if data == nil {
		data = map[string]any{}
	}
	// Echo the command name in every success payload for traceability.
	data["command"] = req.Command
	return protocol.NewSuccess(req.ID, data)
}

// invoke runs the handler with panic recovery.
func (d *Dispatcher) invoke(ctx context.Context, handler command.Handler, req *protocol.Request) (data map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				"command", req.Command,
				"panic", r,
				"stack", string(debug.Stack()))
			data = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler.Invoke(ctx, req.Params, req.ID)
}
