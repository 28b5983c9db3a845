package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/quotewire/quotewire/internal/errors"
)

// Message kind discriminants carried in the "type" field.
const (
	KindRequest  = "request"
	KindResponse = "response"
)

// Message is either a *Request or a *Response.
type Message interface {
	Kind() string
}

// Request is a method invocation sent from a caller to a peer.
//
// Wire format:
//
//	{
//	  "type": "request",
//	  "id": "01JC5T9PW3...",
//	  "method": "stock.quote",
//	  "params": {"symbol": "SHOP"}
//	}
type Request struct {
	// Type is always "request".
	Type string `json:"type"`

	// ID uniquely identifies this request for response correlation.
	ID string `json:"id"`

	// Method names the handler to invoke on the receiving side.
	Method string `json:"method"`

	// Params carries the method arguments.
	Params map[string]any `json:"params,omitempty"`
}

// Kind implements Message.
func (r *Request) Kind() string { return KindRequest }

// Response answers a prior Request, matched by ID. Exactly one of Result
// and Error is present.
//
// Wire format for success:
//
//	{"type": "response", "id": "01JC5T9PW3...", "result": {...}}
//
// Wire format for error:
//
//	{"type": "response", "id": "01JC5T9PW3...", "error": {"code": -32601, "message": "..."}}
type Response struct {
	// Type is always "response".
	Type string `json:"type"`

	// ID matches the Request this responds to.
	ID string `json:"id"`

	// Result is the handler's return value on success.
	Result any `json:"result,omitempty"`

	// Error describes the failure when the call did not succeed.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Kind implements Message.
func (r *Response) Kind() string { return KindResponse }

// IsError reports whether the response carries an error instead of a result.
func (r *Response) IsError() bool { return r.Error != nil }

// Err converts an error response into an *errors.RPCError.
// Returns nil for success responses.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}

	return &errors.RPCError{Code: r.Error.Code, Message: r.Error.Message}
}

// ErrorDetail is the error payload of an error Response.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRequest builds a request envelope with the discriminant set.
func NewRequest(id, method string, params map[string]any) *Request {
	return &Request{
		Type:   KindRequest,
		ID:     id,
		Method: method,
		Params: params,
	}
}

// NewResult builds a success response for the given request id.
func NewResult(id string, result any) *Response {
	return &Response{
		Type:   KindResponse,
		ID:     id,
		Result: result,
	}
}

// NewError builds an error response for the given request id.
func NewError(id string, code int, message string) *Response {
	return &Response{
		Type: KindResponse,
		ID:   id,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// Encode serializes a message to its wire bytes.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}

	return data, nil
}

// Decode parses wire bytes into a *Request or *Response.
//
// Returns *errors.MalformedMessageError when the bytes do not parse, a
// required field is absent, or the discriminant is unrecognized.
func Decode(data []byte) (Message, error) {
	var probe struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &errors.MalformedMessageError{Raw: string(data), Err: err}
	}

	switch probe.Type {
	case KindRequest:
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, &errors.MalformedMessageError{Raw: string(data), Err: err}
		}

		if err := validateRequest(&req); err != nil {
			return nil, &errors.MalformedMessageError{Raw: string(data), Err: err}
		}

		return &req, nil

	case KindResponse:
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, &errors.MalformedMessageError{Raw: string(data), Err: err}
		}

		if err := validateResponse(&resp); err != nil {
			return nil, &errors.MalformedMessageError{Raw: string(data), Err: err}
		}

		return &resp, nil

	case "":
		return nil, &errors.MalformedMessageError{
			Raw: string(data),
			Err: fmt.Errorf("missing type discriminant"),
		}

	default:
		return nil, &errors.MalformedMessageError{
			Raw: string(data),
			Err: fmt.Errorf("unrecognized message type %q", probe.Type),
		}
	}
}

func validateRequest(req *Request) error {
	if req.ID == "" {
		return fmt.Errorf("request missing id")
	}

	if req.Method == "" {
		return fmt.Errorf("request missing method")
	}

	return nil
}

func validateResponse(resp *Response) error {
	// Error responses may lack an id: a server answering an unparseable
	// request has no id to echo. Receivers drop them as uncorrelated.
	if resp.ID == "" && resp.Error == nil {
		return fmt.Errorf("response missing id")
	}

	if resp.Result != nil && resp.Error != nil {
		return fmt.Errorf("response carries both result and error")
	}

	return nil
}
