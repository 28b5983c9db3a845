package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/quotewire/quotewire/internal/envelope"
	"github.com/quotewire/quotewire/internal/errors"
)

// Handler processes one request's params and returns a result value.
//
// A returned error becomes an error response carrying the request's id; the
// dispatcher wraps it, handlers never build envelopes themselves.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Dispatcher maps method names to handlers.
//
// The registry is read-mostly: registration happens during setup, lookups
// happen on every request and are safe for concurrent use.
type Dispatcher struct {
	log        *slog.Logger
	handlersMu sync.RWMutex
	handlers   map[string]*registration
}

type registration struct {
	handler Handler
	schema  *jsonschema.Resolved
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		log:      log.With("component", "dispatcher"),
		handlers: make(map[string]*registration, 10),
	}
}

// Register registers a handler for a method name.
//
// Only one handler can be registered per method. Registering the same method
// twice replaces the previous handler.
func (d *Dispatcher) Register(method string, handler Handler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.log.Debug("Registering handler", "method", method)
	d.handlers[method] = &registration{handler: handler}
}

// RegisterWithSchema registers a handler whose params are validated against
// a JSON Schema before invocation. Violations become invalid-params error
// responses instead of reaching the handler.
func (d *Dispatcher) RegisterWithSchema(
	method string,
	schema *jsonschema.Schema,
	handler Handler,
) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema for %s: %w", method, err)
	}

	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.log.Debug("Registering handler with schema", "method", method)
	d.handlers[method] = &registration{handler: handler, schema: resolved}

	return nil
}

// Methods returns the registered method names.
func (d *Dispatcher) Methods() []string {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()

	methods := make([]string, 0, len(d.handlers))
	for method := range d.handlers {
		methods = append(methods, method)
	}

	return methods
}

// Dispatch routes a decoded request to its handler and wraps the outcome in
// a response carrying the request's id.
//
// An unregistered method yields a method-not-found error response, never a
// local failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req *envelope.Request) *envelope.Response {
	d.handlersMu.RLock()
	reg, exists := d.handlers[req.Method]
	d.handlersMu.RUnlock()

	if !exists {
		d.log.Warn("No handler registered for method", "method", req.Method)

		return envelope.NewError(
			req.ID,
			errors.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method),
		)
	}

	if reg.schema != nil {
		params := req.Params
		if params == nil {
			params = map[string]any{}
		}

		if err := reg.schema.Validate(params); err != nil {
			d.log.Warn("Params failed schema validation", "method", req.Method, "error", err)

			return envelope.NewError(
				req.ID,
				errors.CodeInvalidParams,
				fmt.Sprintf("invalid params: %v", err),
			)
		}
	}

	result, err := reg.handler(ctx, req.Params)
	if err != nil {
		d.log.Warn("Handler returned error", "method", req.Method, "error", err)

		return envelope.NewError(req.ID, errorCode(err), err.Error())
	}

	return envelope.NewResult(req.ID, result)
}

// errorCode maps a handler error to its wire code. Handlers may return an
// *errors.RPCError to pick the code themselves; anything else is internal.
func errorCode(err error) int {
	var rpcErr *errors.RPCError
	if stderrors.As(err, &rpcErr) {
		return rpcErr.Code
	}

	return errors.CodeInternalError
}
