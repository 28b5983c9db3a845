package quotewire

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client or Server.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	callTimeout time.Duration
	httpClient  *http.Client
	serverArgs  []string
	serverEnv   []string
	stderr      func(line string)
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithLogger sets the logger used for protocol and transport diagnostics.
// The default discards all records.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithCallTimeout sets the per-call timeout for client calls that do not
// carry their own deadline. Zero keeps the default of 30 seconds.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		o.callTimeout = d
	}
}

// WithHTTPClient sets the http.Client used by HTTP clients. The default
// is http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithServerArgs sets extra arguments passed to the server binary spawned
// by NewStdioClient.
func WithServerArgs(args ...string) Option {
	return func(o *options) {
		o.serverArgs = args
	}
}

// WithServerEnv sets the environment for the server binary spawned by
// NewStdioClient. Nil inherits the parent environment.
func WithServerEnv(env []string) Option {
	return func(o *options) {
		o.serverEnv = env
	}
}

// WithStderr registers a callback invoked with each stderr line emitted
// by a spawned server process.
func WithStderr(fn func(line string)) Option {
	return func(o *options) {
		o.stderr = fn
	}
}
