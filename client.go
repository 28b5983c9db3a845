package quotewire

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quotewire/quotewire/internal/errors"
	"github.com/quotewire/quotewire/internal/protocol"
	"github.com/quotewire/quotewire/internal/quote"
	"github.com/quotewire/quotewire/internal/transport"
)

// Quote is a snapshot of market data for a single symbol as returned by
// the stock.quote and stock.batch methods.
type Quote = quote.Quote

// Client issues calls to a quotewire server over a transport and matches
// responses back to callers by correlation id.
//
// Clients are single-use: after Close, every method returns
// ErrClientClosed.
type Client struct {
	session   *protocol.Session
	transport transport.Transport

	mu     sync.Mutex
	closed bool
}

// NewStdioClient spawns the server binary at path and connects to it over
// its stdin/stdout. The process is killed when the client is closed.
func NewStdioClient(ctx context.Context, path string, opts ...Option) (*Client, error) {
	o := applyOptions(opts)

	tr := transport.NewSubprocess(o.logger, path, o.serverArgs, o.serverEnv, o.stderr)
	if err := tr.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting server process: %w", err)
	}

	return newClient(ctx, tr, o), nil
}

// NewHTTPClient connects to a quotewire server's /rpc endpoint.
func NewHTTPClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := applyOptions(opts)

	tr := transport.NewHTTP(o.logger, endpoint, o.httpClient)

	return newClient(ctx, tr, o), nil
}

// NewClient wraps an already-connected transport. Useful for tests and
// custom transports.
func NewClient(ctx context.Context, tr Transport, opts ...Option) *Client {
	return newClient(ctx, tr, applyOptions(opts))
}

func newClient(ctx context.Context, tr transport.Transport, o *options) *Client {
	session := protocol.NewSession(o.logger, tr, nil)
	if o.callTimeout > 0 {
		session.SetCallTimeout(o.callTimeout)
	}

	session.Start(ctx)

	return &Client{
		session:   session,
		transport: tr,
	}
}

// Call sends a request for the given method and blocks until the matching
// response arrives, the call times out, the context is canceled, or the
// client is closed.
//
// A response carrying a wire error is returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.ErrClientClosed
	}
	c.mu.Unlock()

	return c.session.Call(ctx, method, params)
}

// Quote fetches market data for a single symbol via stock.quote.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	result, err := c.Call(ctx, quote.MethodQuote, map[string]any{"symbol": symbol})
	if err != nil {
		return nil, err
	}

	var q Quote
	if err := decodeResult(result, &q); err != nil {
		return nil, err
	}

	return &q, nil
}

// Batch fetches market data for several symbols via stock.batch. Quotes
// come back in the order the symbols were given.
func (c *Client) Batch(ctx context.Context, symbols []string) ([]*Quote, error) {
	params := map[string]any{"symbols": symbols}

	result, err := c.Call(ctx, quote.MethodBatch, params)
	if err != nil {
		return nil, err
	}

	var out struct {
		Quotes []*Quote `json:"quotes"`
	}
	if err := decodeResult(result, &out); err != nil {
		return nil, err
	}

	return out.Quotes, nil
}

// Ping checks that the server is answering.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, quote.MethodPing, nil)

	return err
}

// Close stops the session and tears down the transport. Pending calls
// fail with ErrSessionClosed. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.session.Close()

	return c.transport.Close()
}

// decodeResult round-trips a decoded JSON result into a typed value.
func decodeResult(result any, target any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("re-encoding result: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	return nil
}
