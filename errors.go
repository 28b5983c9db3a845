package quotewire

import (
	"github.com/quotewire/quotewire/internal/errors"
)

// Sentinel errors returned by clients and sessions. Match with errors.Is.
var (
	// ErrCallTimeout indicates a call did not receive a response within
	// the call timeout.
	ErrCallTimeout = errors.ErrCallTimeout

	// ErrSessionClosed indicates the underlying session was closed while
	// calls were still pending, or a call was attempted after Close.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrClientClosed indicates a method was invoked on a closed Client.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportClosed indicates a send was attempted on a closed
	// transport.
	ErrTransportClosed = errors.ErrTransportClosed
)

// TransportError wraps a failure in the underlying transport (pipe I/O,
// HTTP round trip, subprocess plumbing).
type TransportError = errors.TransportError

// ProcessError reports a spawned server process that exited unexpectedly,
// carrying its exit code and buffered stderr.
type ProcessError = errors.ProcessError

// RPCError is a structured error returned by the remote peer in a
// response envelope.
type RPCError = errors.RPCError

// IsQuotewireError reports whether err originated from this module.
func IsQuotewireError(err error) bool {
	return errors.IsQuotewireError(err)
}

// IsMethodNotFound reports whether err is an RPCError with the
// method-not-found code.
func IsMethodNotFound(err error) bool {
	return errors.IsMethodNotFound(err)
}
