// Package envelope defines the wire format for quotewire messages.
//
// Every message on the wire is a single JSON object discriminated by a
// "type" field: "request" or "response". The codec is transport independent;
// framing (newline delimiting, HTTP bodies) is the transport's concern.
package envelope
