// Command quotewire is the command-line client for a quotewire server.
//
//	quotewire quote SHOP RY TD       one-shot quotes for one or more symbols
//	quotewire watch -interval 5s RY  poll and reprint quotes until interrupted
//	quotewire analyze SHOP           price trend against the 50-day average
//	quotewire ping                   check that the server answers
//
// By default it spawns a quotewired binary and talks to it over stdio.
// Pass -http to talk to an already-running HTTP server instead:
//
//	quotewire quote -http http://localhost:8000/rpc SHOP
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/quotewire/quotewire"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error

	switch os.Args[1] {
	case "quote":
		err = runQuote(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	case "analyze":
		err = runAnalyze(ctx, os.Args[2:])
	case "ping":
		err = runPing(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "quotewire:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: quotewire <command> [flags] [args]

Commands:
  quote SYMBOL...   fetch quotes for one or more symbols
  watch SYMBOL...   poll quotes on an interval until interrupted
  analyze SYMBOL    price trend against the 50-day average
  ping              check that the server answers

Flags (per command):
  -http URL         talk to an HTTP server at URL instead of spawning one
  -server PATH      server binary to spawn for stdio mode (default "quotewired")
  -interval DUR     polling interval for watch (default 10s)
  -output FILE      append each watch refresh to FILE as CSV
`)
}

// connFlags holds the transport selection shared by every subcommand.
type connFlags struct {
	httpURL    string
	serverPath string
}

func (c *connFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.httpURL, "http", "", "HTTP endpoint of a running server")
	fs.StringVar(&c.serverPath, "server", "quotewired", "server binary for stdio mode")
}

func (c *connFlags) connect(ctx context.Context) (*quotewire.Client, error) {
	if c.httpURL != "" {
		return quotewire.NewHTTPClient(ctx, c.httpURL)
	}

	return quotewire.NewStdioClient(ctx, c.serverPath)
}

func runQuote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)

	var conn connFlags
	conn.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	symbols := fs.Args()
	if len(symbols) == 0 {
		return fmt.Errorf("quote: at least one symbol required")
	}

	client, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	return fetchAndPrint(ctx, client, symbols)
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)

	var conn connFlags
	conn.register(fs)
	interval := fs.Duration("interval", 10*time.Second, "polling interval")
	output := fs.String("output", "", "CSV file to append quote history to")

	if err := fs.Parse(args); err != nil {
		return err
	}

	symbols := fs.Args()
	if len(symbols) == 0 {
		return fmt.Errorf("watch: at least one symbol required")
	}

	var export *quoteCSV

	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("watch: create %s: %w", *output, err)
		}
		defer file.Close()

		export = newQuoteCSV(file)
		if err := export.writeHeader(); err != nil {
			return fmt.Errorf("watch: write csv header: %w", err)
		}
	}

	client, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		quotes, err := fetch(ctx, client, symbols)
		if err != nil {
			fmt.Fprintln(os.Stderr, "quotewire:", err)
		} else {
			printQuotes(quotes)

			if export != nil {
				if err := export.append(time.Now(), quotes); err != nil {
					fmt.Fprintln(os.Stderr, "quotewire: csv export:", err)
				} else {
					fmt.Printf("exported to %s\n", *output)
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)

	var conn connFlags
	conn.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("analyze: exactly one symbol required")
	}

	client, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	quote, err := client.Quote(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	writeAnalysis(os.Stdout, quote)

	return nil
}

func runPing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)

	var conn connFlags
	conn.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	start := time.Now()
	if err := client.Ping(ctx); err != nil {
		return err
	}

	fmt.Printf("server is up (%s)\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func fetchAndPrint(ctx context.Context, client *quotewire.Client, symbols []string) error {
	quotes, err := fetch(ctx, client, symbols)
	if err != nil {
		return err
	}

	printQuotes(quotes)

	return nil
}

// fetch uses a single-quote call for one symbol and a batch call otherwise.
func fetch(ctx context.Context, client *quotewire.Client, symbols []string) ([]*quotewire.Quote, error) {
	if len(symbols) == 1 {
		quote, err := client.Quote(ctx, symbols[0])
		if err != nil {
			return nil, err
		}

		return []*quotewire.Quote{quote}, nil
	}

	return client.Batch(ctx, symbols)
}

func printQuotes(quotes []*quotewire.Quote) {
	for _, quote := range quotes {
		printQuote(quote)
	}
}

func printQuote(q *quotewire.Quote) {
	name := q.Name
	if name == "" {
		name = q.Symbol
	}

	price := "n/a"
	if q.CurrentPrice != nil {
		price = fmt.Sprintf("%.2f %s", *q.CurrentPrice, q.Currency)
	}

	fmt.Printf("%-10s %-30s %12s", q.Symbol, name, price)

	if q.FiftyDayAverage != nil {
		fmt.Printf("  50d avg %.2f", *q.FiftyDayAverage)
	}

	if q.Volume != nil {
		fmt.Printf("  vol %d", *q.Volume)
	}

	fmt.Println()
}

// writeAnalysis prints the price trend for one quote: the percentage gap
// between the current price and the 50-day average, then the raw figures.
func writeAnalysis(w io.Writer, q *quotewire.Quote) {
	fmt.Fprintf(w, "Analysis for %s\n", q.Symbol)

	if q.CurrentPrice != nil && q.FiftyDayAverage != nil && *q.FiftyDayAverage != 0 {
		diff := (*q.CurrentPrice - *q.FiftyDayAverage) / *q.FiftyDayAverage * 100

		direction := "up"
		if diff < 0 {
			direction = "down"
		}

		fmt.Fprintf(w, "  price vs 50-day average: %s %.2f%%\n", direction, abs(diff))
	}

	if q.CurrentPrice != nil {
		fmt.Fprintf(w, "  current price:           %.2f %s\n", *q.CurrentPrice, q.Currency)
	}

	if q.FiftyDayAverage != nil {
		fmt.Fprintf(w, "  50-day average:          %.2f %s\n", *q.FiftyDayAverage, q.Currency)
	}

	if q.MarketCap != nil {
		fmt.Fprintf(w, "  market cap:              %.2f %s\n", *q.MarketCap, q.Currency)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}

	return f
}

// quoteCSV appends watch refreshes to a CSV stream, one row per quote.
type quoteCSV struct {
	w *csv.Writer
}

func newQuoteCSV(w io.Writer) *quoteCSV {
	return &quoteCSV{w: csv.NewWriter(w)}
}

func (c *quoteCSV) writeHeader() error {
	if err := c.w.Write([]string{"timestamp", "symbol", "price", "volume", "market_cap", "fifty_day_avg"}); err != nil {
		return err
	}

	c.w.Flush()

	return c.w.Error()
}

func (c *quoteCSV) append(at time.Time, quotes []*quotewire.Quote) error {
	timestamp := at.Format(time.RFC3339)

	for _, q := range quotes {
		row := []string{
			timestamp,
			q.Symbol,
			formatFloat(q.CurrentPrice),
			formatInt(q.Volume),
			formatFloat(q.MarketCap),
			formatFloat(q.FiftyDayAverage),
		}

		if err := c.w.Write(row); err != nil {
			return err
		}
	}

	c.w.Flush()

	return c.w.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatInt(*v, 10)
}
