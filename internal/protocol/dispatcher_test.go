package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/quotewire/quotewire/internal/envelope"
	"github.com/quotewire/quotewire/internal/errors"
)

func TestDispatcher_RoutesToHandler(t *testing.T) {
	d := NewDispatcher(slog.Default())
	d.Register("system.ping", func(_ context.Context, _ map[string]any) (any, error) {
		return map[string]any{"status": "online"}, nil
	})

	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-1", "system.ping", nil))

	require.False(t, resp.IsError())
	require.Equal(t, "id-1", resp.ID)
	require.Equal(t, map[string]any{"status": "online"}, resp.Result)
}

func TestDispatcher_MethodNotFound(t *testing.T) {
	d := NewDispatcher(slog.Default())

	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-1", "no.such.method", nil))

	require.True(t, resp.IsError())
	require.Equal(t, "id-1", resp.ID)
	require.Equal(t, errors.CodeMethodNotFound, resp.Error.Code)
	require.True(t, errors.IsMethodNotFound(resp.Err()))
}

func TestDispatcher_HandlerErrorBecomesErrorResponse(t *testing.T) {
	d := NewDispatcher(slog.Default())
	d.Register("boom", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, fmt.Errorf("upstream unavailable")
	})

	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-2", "boom", nil))

	require.True(t, resp.IsError())
	require.Equal(t, errors.CodeInternalError, resp.Error.Code)
	require.Equal(t, "upstream unavailable", resp.Error.Message)
}

func TestDispatcher_HandlerChoosesErrorCode(t *testing.T) {
	d := NewDispatcher(slog.Default())
	d.Register("strict", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, &errors.RPCError{Code: errors.CodeInvalidParams, Message: "symbol required"}
	})

	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-3", "strict", nil))

	require.True(t, resp.IsError())
	require.Equal(t, errors.CodeInvalidParams, resp.Error.Code)
}

func TestDispatcher_ReRegisterReplacesHandler(t *testing.T) {
	d := NewDispatcher(slog.Default())
	d.Register("m", func(_ context.Context, _ map[string]any) (any, error) {
		return "first", nil
	})
	d.Register("m", func(_ context.Context, _ map[string]any) (any, error) {
		return "second", nil
	})

	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-4", "m", nil))

	require.False(t, resp.IsError())
	require.Equal(t, "second", resp.Result)
}

func TestDispatcher_SchemaValidation(t *testing.T) {
	d := NewDispatcher(slog.Default())

	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symbol": {Type: "string"},
		},
		Required: []string{"symbol"},
	}

	called := false
	err := d.RegisterWithSchema("stock.quote", schema, func(_ context.Context, params map[string]any) (any, error) {
		called = true

		return params["symbol"], nil
	})
	require.NoError(t, err)

	// Missing required param never reaches the handler.
	resp := d.Dispatch(context.Background(), envelope.NewRequest("id-5", "stock.quote", nil))
	require.True(t, resp.IsError())
	require.Equal(t, errors.CodeInvalidParams, resp.Error.Code)
	require.False(t, called)

	// Valid params do.
	resp = d.Dispatch(context.Background(), envelope.NewRequest(
		"id-6", "stock.quote", map[string]any{"symbol": "SHOP"},
	))
	require.False(t, resp.IsError())
	require.True(t, called)
	require.Equal(t, "SHOP", resp.Result)
}

func TestDispatcher_Methods(t *testing.T) {
	d := NewDispatcher(slog.Default())
	d.Register("a", func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })
	d.Register("b", func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })

	require.ElementsMatch(t, []string{"a", "b"}, d.Methods())
}
