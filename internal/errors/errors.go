package errors

import (
	"errors"
	"fmt"
)

// QuotewireError is the base interface for all quotewire errors.
type QuotewireError interface {
	error
	IsQuotewireError() bool
}

// Compile-time verification that all error types implement QuotewireError.
var (
	_ QuotewireError = (*MalformedMessageError)(nil)
	_ QuotewireError = (*TransportError)(nil)
	_ QuotewireError = (*ProcessError)(nil)
	_ QuotewireError = (*RPCError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrCallTimeout indicates a call did not receive a response in time.
	ErrCallTimeout = errors.New("call timeout")

	// ErrSessionClosed indicates the session was closed with calls still pending.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionNotStarted indicates Call was invoked before Start.
	ErrSessionNotStarted = errors.New("session not started")

	// ErrUnknownCorrelationID indicates a response arrived for an id with no
	// pending call. Sessions drop such responses rather than failing.
	ErrUnknownCorrelationID = errors.New("unknown correlation id")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrTransportClosed indicates the transport was closed due to shutdown
	// or context cancellation.
	ErrTransportClosed = errors.New("transport closed")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one")
)

// Well-known wire error codes, following the JSON-RPC convention.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// MalformedMessageError indicates bytes that do not decode to a valid envelope.
type MalformedMessageError struct {
	Raw string
	Err error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

// IsQuotewireError implements QuotewireError.
func (e *MalformedMessageError) IsQuotewireError() bool { return true }

// TransportError indicates a connection or IO failure at the transport layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsQuotewireError implements QuotewireError.
func (e *TransportError) IsQuotewireError() bool { return true }

// ProcessError indicates a spawned server process failed.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("server process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsQuotewireError implements QuotewireError.
func (e *ProcessError) IsQuotewireError() bool { return true }

// RPCError is an error response returned by the remote peer.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsQuotewireError implements QuotewireError.
func (e *RPCError) IsQuotewireError() bool { return true }

// IsQuotewireError reports whether err (or any error it wraps) originated
// from this module.
func IsQuotewireError(err error) bool {
	var qwErr QuotewireError
	return errors.As(err, &qwErr)
}

// IsMethodNotFound reports whether err is an RPCError with the
// method-not-found code.
func IsMethodNotFound(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeMethodNotFound
	}

	return false
}
