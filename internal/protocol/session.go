package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quotewire/quotewire/internal/envelope"
	"github.com/quotewire/quotewire/internal/errors"
	"github.com/quotewire/quotewire/internal/transport"
)

const (
	// DefaultCallTimeout bounds how long Call waits for a response when the
	// caller does not choose a timeout.
	DefaultCallTimeout = 30 * time.Second
)

// Session pairs a transport with a dispatcher for one connection.
//
// The Session handles:
//   - Sending requests with unique correlation ids
//   - Receiving and routing responses to waiting callers
//   - Call timeout enforcement
//   - Forwarding incoming requests to the dispatcher and returning the
//     response over the same transport
//
// The Session must be started with Start() before use and manages its own
// goroutine for reading and routing messages. Responses for unknown
// correlation ids are dropped, never fatal: a late response after a timeout
// lands there by design.
type Session struct {
	log         *slog.Logger
	transport   transport.Transport
	dispatcher  *Dispatcher
	callTimeout time.Duration

	// Pending-call table. Mutated by exactly two actors: the sending call
	// path and the receiving read loop.
	pendingMu sync.Mutex
	pending   map[string]chan *envelope.Response

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSession creates a session over the given transport.
//
// The dispatcher may be nil for pure-client sessions; incoming requests then
// get a method-not-found response.
func NewSession(
	log *slog.Logger,
	tr transport.Transport,
	dispatcher *Dispatcher,
) *Session {
	return &Session{
		log:         log.With("component", "session"),
		transport:   tr,
		dispatcher:  dispatcher,
		callTimeout: DefaultCallTimeout,
		pending:     make(map[string]chan *envelope.Response, 10),
		done:        make(chan struct{}),
	}
}

// SetCallTimeout overrides the default per-call timeout. Must be called
// before Start.
func (s *Session) SetCallTimeout(d time.Duration) {
	if d > 0 {
		s.callTimeout = d
	}
}

// Start begins reading messages from the transport and routing them.
func (s *Session) Start(ctx context.Context) {
	s.log.Debug("Starting session")

	messages, errs := s.transport.Messages(ctx)

	s.wg.Add(1)

	go s.readLoop(ctx, messages, errs)
}

// Done returns a channel that is closed when the session stops.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// FatalError returns the transport error that stopped the session, if any.
func (s *Session) FatalError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()

	return s.fatalErr
}

// Close stops the session and fails all pending calls with ErrSessionClosed.
// Safe to call multiple times. The transport is not closed; its owner does that.
func (s *Session) Close() {
	s.log.Debug("Closing session")

	s.closeDone()
	s.wg.Wait()
}

// Call sends a request and waits for the matching response using the
// session's default timeout.
func (s *Session) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	return s.CallWithTimeout(ctx, method, params, s.callTimeout)
}

// CallWithTimeout sends a request and waits for the matching response.
//
// The pending slot is registered before transmission so a fast response can
// never arrive ahead of its table entry. An error response from the peer is
// returned as *errors.RPCError.
func (s *Session) CallWithTimeout(
	ctx context.Context,
	method string,
	params map[string]any,
	timeout time.Duration,
) (any, error) {
	select {
	case <-s.done:
		if err := s.FatalError(); err != nil {
			return nil, fmt.Errorf("transport error: %w", err)
		}

		return nil, errors.ErrSessionClosed
	default:
	}

	id := ulid.Make().String()

	s.log.Debug("Sending request", "id", id, "method", method)

	responseChan := make(chan *envelope.Response, 1)

	s.pendingMu.Lock()
	s.pending[id] = responseChan
	s.pendingMu.Unlock()

	data, err := envelope.Encode(envelope.NewRequest(id, method, params))
	if err != nil {
		s.removePending(id)

		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := s.transport.Send(ctx, data); err != nil {
		s.removePending(id)
		s.log.Error("Failed to send request", "id", id, "error", err)

		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case resp := <-responseChan:
		if resp.IsError() {
			s.log.Warn("Request returned error", "id", id, "error", resp.Error.Message)

			return nil, resp.Err()
		}

		s.log.Debug("Received response", "id", id)

		return resp.Result, nil

	case <-s.done:
		s.removePending(id)

		if err := s.FatalError(); err != nil {
			s.log.Warn("Transport error during call", "id", id, "error", err)

			return nil, fmt.Errorf("transport error: %w", err)
		}

		s.log.Debug("Session closed during call", "id", id)

		return nil, errors.ErrSessionClosed

	case <-time.After(timeout):
		s.removePending(id)
		s.log.Warn("Call timed out", "id", id, "method", method, "timeout", timeout)

		return nil, fmt.Errorf("%w after %s", errors.ErrCallTimeout, timeout)

	case <-ctx.Done():
		s.removePending(id)
		s.log.Debug("Call cancelled", "id", id)

		return nil, ctx.Err()
	}
}

// readLoop reads frames from the transport and routes them.
func (s *Session) readLoop(
	ctx context.Context,
	messages <-chan []byte,
	errs <-chan error,
) {
	defer s.wg.Done()
	defer s.closeDone()
	defer s.log.Debug("Session read loop stopped")

	for {
		select {
		case data, ok := <-messages:
			if !ok {
				s.log.Debug("Message channel closed")

				return
			}

			s.handleFrame(ctx, data)

		case err, ok := <-errs:
			if !ok {
				s.log.Debug("Error channel closed")

				return
			}

			if err != nil {
				s.log.Debug("Transport error in session", "error", err)
				s.setFatalError(err)

				return
			}

		case <-s.done:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleFrame decodes one frame and routes it by kind.
func (s *Session) handleFrame(ctx context.Context, data []byte) {
	msg, err := envelope.Decode(data)
	if err != nil {
		// A frame that does not decode has no id to correlate an error
		// response with. Dropping it keeps the session alive.
		s.log.Warn("Dropping malformed frame", "error", err)

		return
	}

	switch m := msg.(type) {
	case *envelope.Response:
		s.resolvePending(m)

	case *envelope.Request:
		// Run the handler in its own goroutine so the read loop never
		// blocks on a write.
		s.wg.Go(func() {
			s.respond(ctx, s.dispatch(ctx, m))
		})
	}
}

// dispatch routes an incoming request through the dispatcher.
func (s *Session) dispatch(ctx context.Context, req *envelope.Request) *envelope.Response {
	if s.dispatcher == nil {
		return envelope.NewError(
			req.ID,
			errors.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method),
		)
	}

	return s.dispatcher.Dispatch(ctx, req)
}

// resolvePending claims the pending slot for a response and delivers it.
func (s *Session) resolvePending(resp *envelope.Response) {
	s.pendingMu.Lock()

	responseChan, exists := s.pending[resp.ID]
	if exists {
		delete(s.pending, resp.ID)
	}

	s.pendingMu.Unlock()

	if !exists {
		// Late responses after a timeout land here; dropping them is the
		// contract, not an error.
		s.log.Warn("No pending call for response, dropping", "id", resp.ID)

		return
	}

	// We own the slot now; the channel is buffered so this cannot block.
	responseChan <- resp
}

// respond encodes and sends a response envelope.
func (s *Session) respond(ctx context.Context, resp *envelope.Response) {
	data, err := envelope.Encode(resp)
	if err != nil {
		s.log.Error("Failed to encode response", "id", resp.ID, "error", err)

		return
	}

	if err := s.transport.Send(ctx, data); err != nil {
		if ctx.Err() != nil {
			s.log.Debug("Could not send response during shutdown", "error", err)

			return
		}

		s.log.Error("Failed to send response", "id", resp.ID, "error", err)
	}
}

func (s *Session) removePending(id string) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// setFatalError stores the first fatal error and broadcasts via done.
func (s *Session) setFatalError(err error) {
	s.errMu.Lock()

	if s.fatalErr == nil {
		s.fatalErr = err
	}

	s.errMu.Unlock()

	s.closeDone()
}

// closeDone safely closes the done channel exactly once.
func (s *Session) closeDone() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
