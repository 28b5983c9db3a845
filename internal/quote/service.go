package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/quotewire/quotewire/internal/errors"
)

const (
	// defaultSuffix marks Toronto Stock Exchange listings; bare symbols get
	// it appended, matching the upstream's expectation for Canadian stocks.
	defaultSuffix = ".TO"

	defaultCurrency = "CAD"

	maxResponseSize = 1024 * 1024 // 1MB
)

// Quote is one symbol's market snapshot.
type Quote struct {
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name,omitempty"`
	Currency        string   `json:"currency"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	Volume          *int64   `json:"volume,omitempty"`
	MarketCap       *float64 `json:"market_cap,omitempty"`
	FiftyDayAverage *float64 `json:"fifty_day_average,omitempty"`
}

// upstreamQuote is the upstream API's response shape.
type upstreamQuote struct {
	LongName        string   `json:"longName"`
	Currency        string   `json:"currency"`
	CurrentPrice    *float64 `json:"currentPrice"`
	Volume          *int64   `json:"volume"`
	MarketCap       *float64 `json:"marketCap"`
	FiftyDayAverage *float64 `json:"fiftyDayAverage"`
}

// Service fetches quotes from the market-data API.
type Service struct {
	log     *slog.Logger
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewService creates a quote service.
//
// The API key is passed explicitly; an empty key sends unauthenticated
// requests. A nil client falls back to http.DefaultClient and a nil limiter
// disables rate limiting.
func NewService(
	log *slog.Logger,
	client *http.Client,
	baseURL string,
	apiKey string,
	limiter *rate.Limiter,
) *Service {
	if client == nil {
		client = http.DefaultClient
	}

	return &Service{
		log:     log.With("component", "quote_service"),
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: limiter,
	}
}

// NormalizeSymbol appends the Toronto suffix to bare symbols.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.HasSuffix(symbol, defaultSuffix) {
		symbol += defaultSuffix
	}

	return symbol
}

// Fetch retrieves one symbol's quote from the upstream API.
func (s *Service) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, &errors.RPCError{
			Code:    errors.CodeInvalidParams,
			Message: "symbol must not be empty",
		}
	}

	normalized := NormalizeSymbol(symbol)

	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Warn("Upstream rate limit exceeded", "symbol", normalized)

		return nil, &errors.RPCError{
			Code:    errors.CodeInternalError,
			Message: "rate limit exceeded",
		}
	}

	endpoint := fmt.Sprintf("%s/v1/quote?symbol=%s", s.baseURL, url.QueryEscape(normalized))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("Upstream request failed", "symbol", normalized, "error", err)

		return nil, fmt.Errorf("fetch quote for %s: %w", normalized, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.log.Error("Upstream returned error", "symbol", normalized, "status", resp.StatusCode)

		return nil, fmt.Errorf("upstream status %d for %s", resp.StatusCode, normalized)
	}

	var raw upstreamQuote
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	currency := raw.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	s.log.Debug("Fetched quote", "symbol", normalized)

	return &Quote{
		Symbol:          normalized,
		Name:            raw.LongName,
		Currency:        currency,
		CurrentPrice:    raw.CurrentPrice,
		Volume:          raw.Volume,
		MarketCap:       raw.MarketCap,
		FiftyDayAverage: raw.FiftyDayAverage,
	}, nil
}
