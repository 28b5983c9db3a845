package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/quotewire/quotewire/internal/errors"
)

const contentTypeJSON = "application/json"

// HTTP is the client-side HTTP transport variant: each Send posts one
// encoded Request to the /rpc endpoint and delivers the response body into
// the inbound message channel, where the session read loop correlates it.
type HTTP struct {
	log      *slog.Logger
	endpoint string
	client   *http.Client

	messages  chan []byte
	errs      chan error
	closeOnce sync.Once
	done      chan struct{}
}

// NewHTTP creates an HTTP transport posting to the given endpoint URL
// (e.g. "http://localhost:8000/rpc"). A nil client falls back to
// http.DefaultClient; callers wanting timeouts inject their own.
func NewHTTP(log *slog.Logger, endpoint string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTP{
		log:      log.With("component", "http_transport"),
		endpoint: endpoint,
		client:   client,
		messages: make(chan []byte, 16),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Messages returns the inbound channel fed by Send.
//
// Unlike the stream transports there is no independent read loop; responses
// only arrive as POST bodies. The channels are never closed — concurrent
// Sends may still be delivering — so consumers must also watch their own
// shutdown signal.
func (t *HTTP) Messages(_ context.Context) (<-chan []byte, <-chan error) {
	return t.messages, t.errs
}

// Send posts one encoded Request and feeds the response body inbound.
//
// Returns *errors.TransportError on connection failure or non-2xx status.
// A failed call is local to that call: the transport stays usable.
func (t *HTTP) Send(ctx context.Context, data []byte) error {
	select {
	case <-t.done:
		return errors.ErrTransportClosed
	default:
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return &errors.TransportError{Op: "send", Err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Error("POST failed", "endpoint", t.endpoint, "error", err)

		return &errors.TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanTokenSize))
	if err != nil {
		return &errors.TransportError{Op: "receive", Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.log.Warn("Non-2xx response", "status", resp.StatusCode)

		return &errors.TransportError{
			Op:  "send",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	select {
	case t.messages <- body:
	case <-t.done:
		return errors.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Close stops the transport. Safe to call multiple times.
func (t *HTTP) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})

	return nil
}
