package fetcher

import "context"

// Fetcher is the interface implemented by every quote fetcher.
// Each fetcher knows how to retrieve one value and provides a
// Redis-compatible key for caching/storage.
type Fetcher interface {
	// Fetch retrieves the value.
	// Returns an error if the fetch operation fails.
	Fetch(ctx context.Context) (float64, error)

	// Key returns a Redis-compatible hierarchical key for this fetcher.
	// Format: fetcher:{source}:{identifier}
	// Examples:
	//   - fetcher:coinapi:btc_usd
	//   - fetcher:coinapi:eth_eur
	Key() string
}
