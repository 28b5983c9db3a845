package quotewire

import (
	"github.com/quotewire/quotewire/internal/transport"
)

// Transport moves raw envelope frames between peers. Stdio, subprocess,
// and HTTP implementations ship with the module; NewClient accepts any
// implementation for tests or custom wiring.
type Transport = transport.Transport
