// Package quotewire provides a message-control-protocol server and client
// for stock quotes over two transports: stdio and HTTP.
//
// Every message on the wire is a JSON envelope — a request carrying a
// correlation id, method name, and params, or a response carrying the
// matching id and a result or error. Over stdio the envelopes are
// newline-delimited; over HTTP each request is one POST to /rpc.
//
// # Server
//
//	srv := quotewire.NewServer(quotewire.WithLogger(log))
//	srv.Register("system.ping", func(ctx context.Context, params map[string]any) (any, error) {
//	    return map[string]any{"status": "online"}, nil
//	})
//
//	// Stdio: serve the process's stdin/stdout.
//	err := srv.ServeStdio(ctx)
//
//	// HTTP: mount the handler.
//	err := http.ListenAndServe(":8000", srv.Handler())
//
// # Client
//
//	client, err := quotewire.NewHTTPClient(ctx, "http://localhost:8000/rpc")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	quote, err := client.Quote(ctx, "SHOP")
//
// NewStdioClient spawns a server binary and speaks the stdio framing over
// its stdin/stdout instead.
package quotewire
