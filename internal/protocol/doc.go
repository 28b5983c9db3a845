// Package protocol implements request routing and response correlation.
//
// The Dispatcher maps method names to handlers on the serving side. The
// Session pairs a transport with a dispatcher and owns the pending-call
// table for one connection: outgoing calls get a fresh ULID correlation id
// and block until the matching response arrives, times out, or the session
// closes.
//
// Example usage:
//
//	dispatcher := protocol.NewDispatcher(log)
//	dispatcher.Register("system.ping", pingHandler)
//
//	session := protocol.NewSession(log, transport, dispatcher)
//	session.Start(ctx)
//
//	result, err := session.Call(ctx, "stock.quote", map[string]any{"symbol": "SHOP"})
package protocol
