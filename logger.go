package quotewire

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards all records. It is the default
// for clients and servers constructed without WithLogger.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
