package network

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultAPIKeyHeader is the header CoinAPI reads the key from
	DefaultAPIKeyHeader = "X-CoinAPI-Key"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Endpoint describes one upstream API. A value is immutable once built and
// may be shared by any number of concurrent calls.
type Endpoint struct {
	// Name identifies the endpoint in logs, metrics and rate limits
	Name string

	// BaseURL is the absolute URL request paths are joined to
	BaseURL string

	// Timeout bounds each HTTP attempt, not the logical call. A call that
	// retries MaxRetries times may take up to (MaxRetries+1)*Timeout plus
	// the backoff delays.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// APIKeyHeader names the header carrying Token
	APIKeyHeader string

	// Token is the API key sent on every request
	Token string
}

// ExchangeRateEndpoint returns the realtime exchange rate API endpoint
func ExchangeRateEndpoint(token string) Endpoint {
	return Endpoint{
		Name:         "exrates",
		BaseURL:      "https://api-realtime.exrates.coinapi.io",
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		APIKeyHeader: DefaultAPIKeyHeader,
		Token:        token,
	}
}

// MarketDataEndpoint returns the REST market data API endpoint
func MarketDataEndpoint(token string) Endpoint {
	return Endpoint{
		Name:         "marketdata",
		BaseURL:      "https://rest.coinapi.io",
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		APIKeyHeader: DefaultAPIKeyHeader,
		Token:        token,
	}
}

// Validate reports a timeout, retry count or base URL the executor cannot use
func (e Endpoint) Validate() error {
	if e.Timeout <= 0 {
		return fmt.Errorf("endpoint %q: timeout must be positive, got %s", e.Name, e.Timeout)
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("endpoint %q: max retries must not be negative, got %d", e.Name, e.MaxRetries)
	}
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return fmt.Errorf("endpoint %q: invalid base url: %w", e.Name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("endpoint %q: base url %q is not absolute", e.Name, e.BaseURL)
	}
	return nil
}

func (e Endpoint) apiKeyHeader() string {
	if e.APIKeyHeader == "" {
		return DefaultAPIKeyHeader
	}
	return e.APIKeyHeader
}
