package quotewire

import (
	"context"
	"net/http"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/quotewire/quotewire/internal/protocol"
	"github.com/quotewire/quotewire/internal/transport"
)

// Handler processes one request's params and returns the result that goes
// into the response envelope. A returned *RPCError becomes the wire error
// as-is; any other error is reported as an internal error.
type Handler = protocol.Handler

// Server routes incoming requests to registered method handlers. One
// Server can serve stdio and HTTP at the same time.
type Server struct {
	opts       *options
	dispatcher *protocol.Dispatcher
}

// NewServer creates a server with no methods registered.
func NewServer(opts ...Option) *Server {
	o := applyOptions(opts)

	return &Server{
		opts:       o,
		dispatcher: protocol.NewDispatcher(o.logger),
	}
}

// Register adds a handler for a method name. Registering a name twice
// replaces the earlier handler.
func (s *Server) Register(method string, handler Handler) {
	s.dispatcher.Register(method, handler)
}

// RegisterWithSchema adds a handler whose params are validated against a
// JSON schema before the handler runs. Violations produce an
// invalid-params error response without invoking the handler.
func (s *Server) RegisterWithSchema(method string, schema *jsonschema.Schema, handler Handler) error {
	return s.dispatcher.RegisterWithSchema(method, schema, handler)
}

// Methods returns the registered method names in no particular order.
func (s *Server) Methods() []string {
	return s.dispatcher.Methods()
}

// Service is implemented by packages that register a related group of
// methods at once.
type Service interface {
	Register(d *protocol.Dispatcher) error
}

// RegisterService registers every method a service provides.
func (s *Server) RegisterService(svc Service) error {
	return svc.Register(s.dispatcher)
}

// Dispatcher exposes the underlying dispatcher for service packages that
// register a related group of methods at once.
func (s *Server) Dispatcher() *protocol.Dispatcher {
	return s.dispatcher
}

// ServeStdio reads newline-delimited requests from stdin and writes
// responses to stdout until the context is canceled or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, transport.NewStdio(s.opts.logger, os.Stdin, os.Stdout))
}

// Serve runs the request loop over an arbitrary transport.
func (s *Server) Serve(ctx context.Context, tr Transport) error {
	session := protocol.NewSession(s.opts.logger, tr, s.dispatcher)
	session.Start(ctx)

	select {
	case <-ctx.Done():
		session.Close()
		return ctx.Err()
	case <-session.Done():
		return session.FatalError()
	}
}

// Handler returns an http.Handler exposing the same methods over HTTP:
// POST /rpc for requests and GET /health for liveness checks.
func (s *Server) Handler() http.Handler {
	return transport.NewHandler(s.opts.logger, s.dispatcher.Dispatch)
}
