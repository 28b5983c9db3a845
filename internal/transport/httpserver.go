package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/quotewire/quotewire/internal/envelope"
	"github.com/quotewire/quotewire/internal/errors"
)

// DispatchFunc routes a decoded request to a handler and produces the
// response. Provided by the protocol layer so this package stays free of a
// dispatcher dependency.
type DispatchFunc func(ctx context.Context, req *envelope.Request) *envelope.Response

// NewHandler returns the server-side HTTP surface:
//
//	POST /rpc    body = encoded Request, response body = encoded Response
//	GET  /health liveness probe
//
// Each request is an independent unit of work; the handler registration
// table behind dispatch is the only shared state. Responses carry
// permissive CORS headers so browser clients can reach the endpoint from
// any origin.
func NewHandler(log *slog.Logger, dispatch DispatchFunc) http.Handler {
	h := &rpcHandler{
		log:      log.With("component", "http_server"),
		dispatch: dispatch,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", h.handleRPC)
	mux.HandleFunc("GET /health", h.handleHealth)

	return allowAllCORS(mux)
}

// allowAllCORS adds permissive CORS headers to every response and answers
// preflight requests before they reach the mux.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type rpcHandler struct {
	log      *slog.Logger
	dispatch DispatchFunc
}

func (h *rpcHandler) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScanTokenSize))
	if err != nil {
		h.log.Warn("Failed to read request body", "error", err)
		h.writeResponse(w, envelope.NewError("", errors.CodeInvalidRequest, "unreadable request body"))

		return
	}

	msg, err := envelope.Decode(body)
	if err != nil {
		h.log.Warn("Malformed request body", "error", err)
		h.writeResponse(w, envelope.NewError("", errors.CodeParseError, err.Error()))

		return
	}

	req, ok := msg.(*envelope.Request)
	if !ok {
		h.log.Warn("Non-request envelope posted to /rpc")
		h.writeResponse(w, envelope.NewError(
			"", errors.CodeInvalidRequest, "expected a request envelope",
		))

		return
	}

	h.writeResponse(w, h.dispatch(r.Context(), req))
}

func (h *rpcHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// writeResponse encodes the response envelope as the HTTP body.
//
// Protocol errors ride inside the envelope with status 200; HTTP status
// codes are reserved for transport-level failures.
func (h *rpcHandler) writeResponse(w http.ResponseWriter, resp *envelope.Response) {
	data, err := envelope.Encode(resp)
	if err != nil {
		h.log.Error("Failed to encode response", "error", err)
		http.Error(w, "encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)

	if _, err := w.Write(data); err != nil {
		h.log.Debug("Failed to write response", "error", err)
	}
}
