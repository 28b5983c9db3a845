package transport

import "context"

const (
	// maxScanTokenSize is the maximum buffer size for reading framed lines.
	maxScanTokenSize = 1024 * 1024 // 1MB
)

// Transport defines the byte-movement layer underneath the message protocol.
//
// Implementations must be safe for one reader (the session read loop) and
// concurrent senders. Messages returns channels that are closed when the
// transport stops; Send delivers one encoded envelope to the peer.
type Transport interface {
	Messages(ctx context.Context) (<-chan []byte, <-chan error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Compile-time verification that all variants implement Transport.
var (
	_ Transport = (*Stdio)(nil)
	_ Transport = (*Subprocess)(nil)
	_ Transport = (*HTTP)(nil)
)

// frame appends the trailing newline if missing.
// Uses an explicit copy to avoid mutating the caller's backing array if the
// slice has spare capacity.
func frame(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return data
	}

	framed := make([]byte, len(data)+1)
	copy(framed, data)
	framed[len(data)] = '\n'

	return framed
}
