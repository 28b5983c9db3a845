package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/quotewire/quotewire/internal/errors"
)

const (
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (the callback receives all
	// lines), but the buffer stops growing after this limit to prevent
	// unbounded memory usage.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
)

// Subprocess spawns a quotewire server process and speaks the stdio framing
// over its stdin/stdout. Stderr is streamed to an optional callback and
// buffered for error reporting on abnormal exit.
type Subprocess struct {
	log            *slog.Logger
	path           string
	args           []string
	env            []string
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string)
	mu             sync.Mutex // Protects stdin writes and lifecycle flags
	closing        bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool       // Whether stdin was closed (e.g., due to context cancellation)
}

// NewSubprocess creates a transport that will spawn the server binary at
// path with the given arguments.
//
// The environment, when non-nil, replaces the child's environment entirely;
// pass nil to inherit the parent's. The stderr callback, when non-nil,
// receives each stderr line as it arrives.
func NewSubprocess(
	log *slog.Logger,
	path string,
	args []string,
	env []string,
	stderrCallback func(string),
) *Subprocess {
	return &Subprocess{
		log:            log.With("component", "subprocess_transport"),
		path:           path,
		args:           args,
		env:            env,
		stderrCallback: stderrCallback,
	}
}

// Start spawns the server process and wires up its pipes.
//
// Returns *errors.TransportError if any pipe cannot be created or the
// process fails to start.
func (t *Subprocess) Start(ctx context.Context) error {
	t.log.Info("Starting server subprocess", "path", t.path)

	//nolint:gosec // G204: spawning a caller-chosen server binary is the point
	cmd := exec.CommandContext(ctx, t.path, t.args...)
	if t.env != nil {
		cmd.Env = t.env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.TransportError{Op: "start", Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	t.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.TransportError{Op: "start", Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	t.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.TransportError{Op: "start", Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	t.stderr = stderr

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start server process", "error", err)

		return &errors.TransportError{Op: "start", Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.log.Info("Server subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// Messages reads newline-delimited frames from the server's stdout.
//
// When the process exits abnormally outside of an intentional Close, the
// error channel receives a *errors.ProcessError carrying the exit code and
// buffered stderr. Both channels are closed when the goroutine exits.
func (t *Subprocess) Messages(ctx context.Context) (<-chan []byte, <-chan error) {
	messages := make(chan []byte)
	errs := make(chan error, 1)

	var stderrWg sync.WaitGroup

	var stderrBuffer strings.Builder

	var stderrMu sync.Mutex

	// Always buffer stderr for error reporting (must complete reads before Wait())
	// See: https://pkg.go.dev/os/exec#Cmd.StderrPipe

	stderrWg.Go(func() {
		// Relies on process kill to close pipes and unblock Scan().
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner error", "error", err)
		}
	})

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("Subprocess read loop stopped")

		scanner := bufio.NewScanner(t.stdout)
		buf := make([]byte, maxScanTokenSize)
		scanner.Buffer(buf, maxScanTokenSize)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()

				return
			default:
			}

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
			t.log.Error("Scanner error while reading server output", "error", err)

			errs <- &errors.TransportError{Op: "receive", Err: err}
		}

		// Wait for stderr goroutine before process wait
		stderrWg.Wait()

		t.log.Debug("Waiting for server process to exit")

		if err := t.cmd.Wait(); err != nil {
			t.mu.Lock()
			isClosing := t.closing
			t.mu.Unlock()

			if isClosing {
				t.log.Debug("Server process terminated during shutdown")

				return
			}

			stderrMu.Lock()
			stderrOutput := stderrBuffer.String()
			stderrMu.Unlock()

			exitCode := 0

			if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
				exitCode = exitErr.ExitCode()
			}

			t.log.Error("Server process exited with error", "exit_code", exitCode, "stderr", stderrOutput)

			errs <- &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   stderrOutput,
				Err:      err,
			}
		} else {
			t.log.Info("Server process exited cleanly")
		}
	}()

	return messages, errs
}

// Send writes one framed envelope to the server's stdin.
//
// Safe for concurrent use and respects context cancellation even during
// blocking writes: if the context is cancelled mid-write, stdin is closed to
// unblock the write goroutine and subsequent calls return ErrTransportClosed.
func (t *Subprocess) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		return errors.ErrTransportClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	framed := frame(data)

	// Write in goroutine to respect context cancellation
	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(framed)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write frame to server", "error", err)

			return &errors.TransportError{Op: "send", Err: fmt.Errorf("write to stdin: %w", err)}
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		if t.stdin != nil {
			_ = t.stdin.Close()
			t.stdinClosed = true
		}

		// Wait for the write goroutine to exit with a timeout to prevent a leak
		select {
		case <-done:
		case <-time.After(1 * time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady reports whether the server process is running and stdin is open.
func (t *Subprocess) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil
}

// Close terminates the server process.
//
// Safe to call multiple times or on an already-terminated process.
func (t *Subprocess) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing server process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill server process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}
