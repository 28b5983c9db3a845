// Command quotewire-mcp exposes a quotewire server's quote methods as MCP
// tools over stdio, so MCP hosts can look up market data.
//
// It connects to the quotewire server the same way the CLI does: spawning
// a quotewired binary by default, or over HTTP with -http.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quotewire/quotewire"
)

const (
	serverName    = "quotewire"
	serverVersion = "1.0.0"
)

// StockQuoteInput is the MCP tool input for a single-symbol lookup.
type StockQuoteInput struct {
	Symbol string `json:"symbol" jsonschema:"ticker symbol, bare symbols get the .TO suffix"`
}

// StockQuoteResult is the MCP tool output for a single-symbol lookup.
type StockQuoteResult struct {
	Quote *quotewire.Quote `json:"quote"`
}

// StockBatchInput is the MCP tool input for a multi-symbol lookup.
type StockBatchInput struct {
	Symbols []string `json:"symbols" jsonschema:"ticker symbols to fetch"`
}

// StockBatchResult is the MCP tool output for a multi-symbol lookup.
type StockBatchResult struct {
	Quotes []*quotewire.Quote `json:"quotes"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quotewire-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	httpURL := flag.String("http", "", "HTTP endpoint of a running quotewire server")
	serverPath := flag.String("server", "quotewired", "quotewire server binary for stdio mode")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		client *quotewire.Client
		err    error
	)

	if *httpURL != "" {
		client, err = quotewire.NewHTTPClient(ctx, *httpURL)
	} else {
		client, err = quotewire.NewStdioClient(ctx, *serverPath)
	}
	if err != nil {
		return err
	}
	defer client.Close()

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stock_quote",
		Description: "Fetches current market data for a single ticker symbol",
	}, quoteHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stock_batch",
		Description: "Fetches current market data for several ticker symbols at once",
	}, batchHandler(client))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	return nil
}

func quoteHandler(client *quotewire.Client) mcp.ToolHandlerFor[StockQuoteInput, StockQuoteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StockQuoteInput) (*mcp.CallToolResult, StockQuoteResult, error) {
		quote, err := client.Quote(ctx, input.Symbol)
		if err != nil {
			return nil, StockQuoteResult{}, fmt.Errorf("fetch quote: %w", err)
		}

		return nil, StockQuoteResult{Quote: quote}, nil
	}
}

func batchHandler(client *quotewire.Client) mcp.ToolHandlerFor[StockBatchInput, StockBatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StockBatchInput) (*mcp.CallToolResult, StockBatchResult, error) {
		quotes, err := client.Batch(ctx, input.Symbols)
		if err != nil {
			return nil, StockBatchResult{}, fmt.Errorf("fetch quotes: %w", err)
		}

		return nil, StockBatchResult{Quotes: quotes}, nil
	}
}
