// Command quotewired runs the quotewire server.
//
// By default it speaks the newline-delimited protocol on stdin/stdout,
// which is how quotewire.NewStdioClient expects to talk to it. With
// -transport http it serves POST /rpc and GET /health on the configured
// address instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/quotewire/quotewire"
	"github.com/quotewire/quotewire/internal/config"
	"github.com/quotewire/quotewire/internal/quote"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quotewired:", err)
		os.Exit(1)
	}
}

func run() error {
	transportName := flag.String("transport", "stdio", "transport to serve: stdio or http")
	addr := flag.String("addr", "", "HTTP listen address (overrides QUOTEWIRE_HTTP_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Stdout carries protocol frames in stdio mode, so diagnostics always
	// go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	srv := quotewire.NewServer(
		quotewire.WithLogger(log),
		quotewire.WithCallTimeout(cfg.CallTimeout),
	)

	service := quote.NewService(
		log,
		&http.Client{Timeout: cfg.UpstreamTimeout},
		cfg.MarketAPIBaseURL,
		cfg.MarketAPIKey,
		rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	)
	if err := srv.RegisterService(service); err != nil {
		return fmt.Errorf("registering quote methods: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *transportName {
	case "stdio":
		return serveStdio(ctx, srv)
	case "http":
		listenAddr := cfg.HTTPAddr
		if *addr != "" {
			listenAddr = *addr
		}

		return serveHTTP(ctx, log, srv, listenAddr)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", *transportName)
	}
}

func serveStdio(ctx context.Context, srv *quotewire.Server) error {
	err := srv.ServeStdio(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func serveHTTP(ctx context.Context, log *slog.Logger, srv *quotewire.Server, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
