package coinapi

import (
	"context"
	"fmt"
	"strings"
)

// Pair is a base asset quoted in another asset
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses "btc/usd"
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(strings.TrimSpace(s), "/")
	base, quote = strings.TrimSpace(base), strings.TrimSpace(quote)
	if !ok || base == "" || quote == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, want BASE/QUOTE", s)
	}
	return Pair{Base: strings.ToLower(base), Quote: strings.ToLower(quote)}, nil
}

// String returns the pair as "base/quote"
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// RateFetcher fetches the current rate of one pair
type RateFetcher struct {
	client *Client
	pair   Pair
}

// NewRateFetcher creates a new rate fetcher
func NewRateFetcher(client *Client, pair Pair) *RateFetcher {
	return &RateFetcher{
		client: client,
		pair:   pair,
	}
}

// Fetch retrieves the current rate of the pair
func (f *RateFetcher) Fetch(ctx context.Context) (float64, error) {
	rates, err := f.client.CurrentRate(ctx, f.pair.Base)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rate for %s: %w", f.pair, err)
	}

	rate, ok := rates.Find(f.pair.Quote)
	if !ok {
		return 0, fmt.Errorf("rate for %s not found in response", f.pair)
	}

	return rate.Rate, nil
}

// Key returns the Redis key for this fetcher
func (f *RateFetcher) Key() string {
	return fmt.Sprintf("fetcher:coinapi:%s_%s", f.pair.Base, f.pair.Quote)
}
