package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMalformedMessageError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &MalformedMessageError{
		Raw: `{"type":"req`,
		Err: root,
	}

	require.Equal(t, "malformed message: unexpected end of JSON input", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsQuotewireError())
}

func TestTransportError(t *testing.T) {
	root := errors.New("connection refused")
	err := &TransportError{Op: "send", Err: root}

	require.Equal(t, "transport send failed: connection refused", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsQuotewireError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("process terminated")
	err := &ProcessError{
		ExitCode: 9,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "server process failed (exit 9): process terminated", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsQuotewireError())
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 2,
		Stderr:   "permission denied",
	}

	require.Equal(t, "server process failed (exit 2): permission denied", err.Error())
	require.NoError(t, err.Unwrap())
	require.True(t, err.IsQuotewireError())
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Code: CodeMethodNotFound, Message: "method not found: nope"}

	require.Equal(t, "rpc error -32601: method not found: nope", err.Error())
	require.True(t, err.IsQuotewireError())
}

func TestIsMethodNotFound(t *testing.T) {
	notFound := &RPCError{Code: CodeMethodNotFound, Message: "method not found"}
	internal := &RPCError{Code: CodeInternalError, Message: "boom"}

	require.True(t, IsMethodNotFound(notFound))
	require.True(t, IsMethodNotFound(wrapOnce(notFound)))
	require.False(t, IsMethodNotFound(internal))
	require.False(t, IsMethodNotFound(errors.New("plain")))
}

// wrapOnce wraps an error one level to exercise errors.As traversal.
func wrapOnce(err error) error {
	return &TransportError{Op: "call", Err: err}
}
