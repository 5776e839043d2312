// Package plugin defines the handler contract and the ordered dispatch
// registry. Handlers are values implementing one capability, not a type
// hierarchy; adding or removing a handler never touches the router.
package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// Handler is the plugin boundary. Handle is invoked with the parsed command
// name, its params, and the per-event context (which also carries params and
// the shared settings).
//
// Return values:
//
//	(nil, nil)        the handler does not claim this command
//	(empty, nil)      claimed, nothing to send
//	(responses, nil)  claimed, responses are sent in order
//	(_, err)          treated as not handled; dispatch continues
//
// Handle must be safe for concurrent invocation: workers call into the same
// handler value from multiple goroutines.
type Handler interface {
	Name() string
	Handle(ctx context.Context, cmd string, params []string, mctx *protocol.Context) ([]protocol.Response, error)
}

// Registry is an ordered, immutable set of handlers. The order is fixed at
// construction and identical on every run for a given handler list; dispatch
// is first-match-wins.
type Registry struct {
	handlers []Handler
	logger   *slog.Logger
}

// NewRegistry builds a registry from handlers in registration order. The
// registry does not care how the list was assembled.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{
		handlers: handlers,
		logger:   log.WithComponent("plugin"),
	}
}

// Names returns the handler names in dispatch order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		names = append(names, h.Name())
	}
	return names
}

// Dispatch walks the handlers in order and returns the first claimed result.
// A handler error or panic is logged and treated as "not handled"; one
// misbehaving handler never blocks the rest nor crashes the worker. A nil
// return means no handler claimed the command.
func (r *Registry) Dispatch(ctx context.Context, cmd string, params []string, mctx *protocol.Context) []protocol.Response {
	for _, h := range r.handlers {
		responses, err := r.invoke(ctx, h, cmd, params, mctx)
		if err != nil {
			r.logger.Error("handler failed, continuing dispatch",
				"handler", h.Name(), "command", cmd, "error", err)
			continue
		}
		if responses != nil {
			r.logger.Debug("handler claimed command",
				"handler", h.Name(), "command", cmd, "responses", len(responses))
			return responses
		}
	}
	r.logger.Debug("no handler claimed command", "command", cmd)
	return nil
}

// invoke runs one handler with panic containment.
func (r *Registry) invoke(ctx context.Context, h Handler, cmd string, params []string, mctx *protocol.Context) (responses []protocol.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			responses = nil
			err = &PanicError{Handler: h.Name(), Value: rec}
		}
	}()
	return h.Handle(ctx, cmd, params, mctx)
}

// PanicError wraps a panic recovered from a handler invocation.
type PanicError struct {
	Handler string
	Value   any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Handler, e.Value)
}
