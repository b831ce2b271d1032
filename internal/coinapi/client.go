package coinapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"coinrates/internal/network"
)

const (
	historyDateLayout = "2006-01-02"

	defaultSourceAsset = "btc"
	defaultTargetAsset = "usd"
	defaultPeriodID    = "1DAY"
	defaultLookback    = 10000 * 24 * time.Hour

	defaultCacheTTL = 5 * time.Minute
)

// Requester executes one logical call. *network.Executor implements it.
type Requester interface {
	Do(ctx context.Context, req network.Request) ([]byte, error)
}

// Cache stores slowly changing listings. Get reports whether key was found.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Client decodes CoinAPI responses into typed records. It does no retrying
// of its own; that lives entirely in the Requester.
type Client struct {
	marketData   Requester
	exchangeRate Requester
	cache        Cache
	cacheTTL     time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithExchangeRateRequester serves CurrentRate from a separate endpoint
func WithExchangeRateRequester(r Requester) ClientOption {
	return func(c *Client) {
		c.exchangeRate = r
	}
}

// WithCache serves exchange and icon listings cache-aside
func WithCache(cache Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithClock overrides time.Now, used for default history ranges
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithClientLogger sets the logger, slog.Default() otherwise
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client issuing its calls through marketData
func NewClient(marketData Requester, opts ...ClientOption) *Client {
	c := &Client{
		marketData: marketData,
		cacheTTL:   defaultCacheTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exchangeRate == nil {
		c.exchangeRate = marketData
	}
	return c
}

// CurrentRate fetches all quotes of asset
func (c *Client) CurrentRate(ctx context.Context, asset string) (CurrentRates, error) {
	if strings.TrimSpace(asset) == "" {
		return CurrentRates{}, fmt.Errorf("%w: asset", ErrMissingParameter)
	}

	req := network.Request{
		Method: network.MethodGet,
		Path:   "/v1/exchangerate/" + url.PathEscape(asset),
	}
	return fetch[CurrentRates](ctx, c.exchangeRate, req, checkCurrentRates)
}

// PeriodQuery selects a rate history. Zero fields take defaults: btc/usd,
// 1DAY buckets, from 10000 days ago until now.
type PeriodQuery struct {
	SourceAsset string
	TargetAsset string
	PeriodID    string
	Start       time.Time
	End         time.Time
}

func (q PeriodQuery) withDefaults(now time.Time) PeriodQuery {
	if q.SourceAsset == "" {
		q.SourceAsset = defaultSourceAsset
	}
	if q.TargetAsset == "" {
		q.TargetAsset = defaultTargetAsset
	}
	if q.PeriodID == "" {
		q.PeriodID = defaultPeriodID
	}
	if q.End.IsZero() {
		q.End = now
	}
	if q.Start.IsZero() {
		q.Start = q.End.Add(-defaultLookback)
	}
	return q
}

// ExchangePeriods fetches the OHLC history of SourceAsset quoted in TargetAsset
func (c *Client) ExchangePeriods(ctx context.Context, q PeriodQuery) ([]ExchangePeriod, error) {
	q = q.withDefaults(c.now())

	req := network.Request{
		Method: network.MethodGet,
		Path: fmt.Sprintf("/v1/exchangerate/%s/%s/history",
			url.PathEscape(q.SourceAsset), url.PathEscape(q.TargetAsset)),
		Query: map[string]string{
			"period_id":  q.PeriodID,
			"time_start": q.Start.UTC().Format(historyDateLayout),
			"time_end":   q.End.UTC().Format(historyDateLayout),
		},
	}
	return fetch[[]ExchangePeriod](ctx, c.marketData, req, checkPeriods)
}

// Exchanges fetches the metadata of every exchange
func (c *Client) Exchanges(ctx context.Context) ([]Exchange, error) {
	req := network.Request{Method: network.MethodGet, Path: "/v1/exchanges"}
	return cached(ctx, c, "exchanges", func() ([]Exchange, error) {
		return fetch[[]Exchange](ctx, c.marketData, req, checkExchanges)
	})
}

// ExchangeIcons fetches the exchange icons rendered at size pixels
func (c *Client) ExchangeIcons(ctx context.Context, size int) ([]ExchangeIcon, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: icon size", ErrMissingParameter)
	}

	req := network.Request{
		Method: network.MethodGet,
		Path:   "/v1/exchanges/icons/" + strconv.Itoa(size),
	}
	return cached(ctx, c, "exchanges:icons:"+strconv.Itoa(size), func() ([]ExchangeIcon, error) {
		return fetch[[]ExchangeIcon](ctx, c.marketData, req, checkIcons)
	})
}

func fetch[T any](ctx context.Context, r Requester, req network.Request, check func(gjson.Result) error) (T, error) {
	var zero T

	body, err := r.Do(ctx, req)
	if err != nil {
		return zero, newNetworkError(err)
	}

	out, err := decode[T](body, check)
	if err != nil {
		return zero, newDecodeError(err)
	}
	return out, nil
}

// cached wraps load with a cache-aside lookup. Cache failures are logged and
// never fail the call.
func cached[T any](ctx context.Context, c *Client, key string, load func() (T, error)) (T, error) {
	if c.cache == nil {
		return load()
	}

	var hit T
	found, err := c.cache.Get(ctx, key, &hit)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if found {
		return hit, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := c.cache.Set(ctx, key, value, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}
