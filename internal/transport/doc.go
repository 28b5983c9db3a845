// Package transport moves encoded message bytes between peer processes.
//
// Three variants implement the same Transport interface: Stdio (newline
// delimited JSON over an arbitrary reader/writer pair), Subprocess (the
// stdio framing spoken to a spawned server process), and HTTP (one POST per
// request, response body fed back into the inbound channel). Session and
// dispatcher logic never depend on which variant is in use.
package transport
