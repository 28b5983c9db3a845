package quote

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/quotewire/quotewire/internal/errors"
	"github.com/quotewire/quotewire/internal/protocol"
)

// Method names served by the quote service.
const (
	MethodQuote  = "stock.quote"
	MethodBatch  = "stock.batch"
	MethodPing   = "system.ping"
	MethodHealth = "system.health"
)

// maxBatchConcurrency caps parallel upstream fetches for one batch call.
const maxBatchConcurrency = 8

// Register wires the quote methods into a dispatcher.
func (s *Service) Register(d *protocol.Dispatcher) error {
	quoteSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symbol": {Type: "string"},
		},
		Required: []string{"symbol"},
	}

	if err := d.RegisterWithSchema(MethodQuote, quoteSchema, s.handleQuote); err != nil {
		return fmt.Errorf("register %s: %w", MethodQuote, err)
	}

	batchSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symbols": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string"},
			},
		},
		Required: []string{"symbols"},
	}

	if err := d.RegisterWithSchema(MethodBatch, batchSchema, s.handleBatch); err != nil {
		return fmt.Errorf("register %s: %w", MethodBatch, err)
	}

	d.Register(MethodPing, s.handlePing)
	d.Register(MethodHealth, s.handleHealth)

	return nil
}

func (s *Service) handleQuote(ctx context.Context, params map[string]any) (any, error) {
	symbol, _ := params["symbol"].(string)

	quote, err := s.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return quote, nil
}

// handleBatch fetches several symbols concurrently, preserving input order.
// Any failed fetch fails the whole batch.
func (s *Service) handleBatch(ctx context.Context, params map[string]any) (any, error) {
	rawSymbols, _ := params["symbols"].([]any)

	symbols := make([]string, 0, len(rawSymbols))

	for _, raw := range rawSymbols {
		symbol, ok := raw.(string)
		if !ok {
			return nil, &errors.RPCError{
				Code:    errors.CodeInvalidParams,
				Message: "symbols must be strings",
			}
		}

		symbols = append(symbols, symbol)
	}

	quotes := make([]*Quote, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)

	for i, symbol := range symbols {
		g.Go(func() error {
			quote, err := s.Fetch(gctx, symbol)
			if err != nil {
				return err
			}

			quotes[i] = quote

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]any{"quotes": quotes}, nil
}

func (s *Service) handlePing(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{
		"status":  "online",
		"message": "quotewire server is running",
	}, nil
}

func (s *Service) handleHealth(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{"status": "healthy"}, nil
}
