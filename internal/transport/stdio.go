package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/quotewire/quotewire/internal/errors"
)

// Stdio frames messages as newline-delimited UTF-8 JSON over a reader/writer
// pair. The framing is symmetric: one envelope per line in both directions,
// no embedded newlines inside the encoding.
//
// Servers construct it over os.Stdin/os.Stdout; tests use in-memory pipes.
type Stdio struct {
	log *slog.Logger
	r   io.Reader
	w   io.Writer

	mu     sync.Mutex // Protects writes and the closed flag
	closed bool
}

// NewStdio creates a stdio transport over the given reader and writer.
func NewStdio(log *slog.Logger, r io.Reader, w io.Writer) *Stdio {
	return &Stdio{
		log: log.With("component", "stdio_transport"),
		r:   r,
		w:   w,
	}
}

// Messages reads newline-delimited frames from the reader.
//
// The goroutine exits when the reader reaches EOF, an unrecoverable read
// error occurs, or the context is cancelled. Both channels are closed when
// it exits.
func (t *Stdio) Messages(ctx context.Context) (<-chan []byte, <-chan error) {
	messages := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("Stdio read loop stopped")

		scanner := bufio.NewScanner(t.r)
		buf := make([]byte, maxScanTokenSize)
		scanner.Buffer(buf, maxScanTokenSize)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()

				return
			default:
			}

			// Scanner reuses its buffer between lines; hand out a copy.
			line := scanner.Bytes()
			frame := make([]byte, len(line))
			copy(frame, line)

			select {
			case messages <- frame:
			case <-ctx.Done():
				errs <- ctx.Err()

				return
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Error("Scanner error while reading frames", "error", err)

			errs <- &errors.TransportError{Op: "receive", Err: err}
		}
	}()

	return messages, errs
}

// Send writes one framed envelope. Safe for concurrent use.
func (t *Stdio) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.ErrTransportClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, err := t.w.Write(frame(data)); err != nil {
		t.log.Error("Failed to write frame", "error", err)

		return &errors.TransportError{Op: "send", Err: fmt.Errorf("write frame: %w", err)}
	}

	return nil
}

// Close marks the transport closed and closes the underlying streams when
// they support it. Safe to call multiple times.
func (t *Stdio) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	if c, ok := t.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close writer: %w", err)
		}
	}

	if c, ok := t.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close reader: %w", err)
		}
	}

	return nil
}
