package coinapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coinrates/internal/network"
	"coinrates/internal/testutil"
)

const currentRatesJSON = `{
	"asset_id_base": "BTC",
	"rates": [
		{"time": "2024-02-21T00:00:00.000Z", "asset_id_quote": "USD", "rate": 3258.88},
		{"time": "2024-02-21T00:00:00.000Z", "asset_id_quote": "EUR", "rate": 2782.52},
		{"time": "2024-02-21T00:00:00.000Z", "asset_id_quote": "GBP", "rate": 2509.60}
	]
}`

const periodsJSON = `[
	{
		"time_period_start": "2024-12-23T00:00:00.0000000Z",
		"time_period_end": "2025-01-02T00:00:00.0000000Z",
		"time_open": "2025-01-01T00:00:02.8000000Z",
		"time_close": "2025-01-01T23:59:59.3000000Z",
		"rate_open": 582277.1036697753,
		"rate_high": 592635.3658540217,
		"rate_low": 576593.9920982684,
		"rate_close": 588440.152401636
	}
]`

const exchangesJSON = `[
	{
		"exchange_id": "BINANCE",
		"website": "https://www.binance.com/",
		"name": "Binance",
		"data_quote_start": "2017-12-18T00:00:00.0000000Z",
		"data_quote_end": "2025-02-20T00:00:00.0000000Z",
		"data_orderbook_start": "2017-12-18T00:00:00.0000000Z",
		"data_orderbook_end": "2025-02-20T00:00:00.0000000Z",
		"data_trade_start": "2017-07-14T00:00:00.0000000Z",
		"data_trade_end": "2025-02-20T00:00:00.0000000Z",
		"data_symbols_count": 3120,
		"volume_1hrs_usd": 1234.5,
		"volume_1day_usd": 98765.25,
		"volume_1mth_usd": 1000000.75,
		"rank": 1
	}
]`

const iconsJSON = `[
	{"exchange_id": "BINANCE", "url": "https://s3.eu-central-1.amazonaws.com/bbxt-static-icons/type-id/png_16/binance.png"},
	{"exchange_id": "KRAKEN", "url": "https://s3.eu-central-1.amazonaws.com/bbxt-static-icons/type-id/png_16/kraken.png"}
]`

// fakeRequester returns canned responses and records every request
type fakeRequester struct {
	mu       sync.Mutex
	requests []network.Request
	body     []byte
	err      error
}

func (f *fakeRequester) Do(ctx context.Context, req network.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.body, f.err
}

func (f *fakeRequester) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// memoryCache is an in-process Cache
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return false, errors.New("cache unavailable")
	}
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func newServerClient(t *testing.T, handler http.HandlerFunc, maxRetries int) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	endpoint := network.MarketDataEndpoint("test_key")
	endpoint.BaseURL = server.URL
	endpoint.MaxRetries = maxRetries

	exec, err := network.NewExecutor(endpoint, network.WithScheduler(&testutil.RecordingScheduler{}))
	if err != nil {
		t.Fatalf("NewExecutor() returned unexpected error: %v", err)
	}
	t.Cleanup(func() { exec.Close() })

	return NewClient(exec)
}

func TestClient_CurrentRate_Success(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/exchangerate/btc" {
			t.Errorf("path = %q, want /v1/exchangerate/btc", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(currentRatesJSON))
	}, 3)

	rates, err := client.CurrentRate(context.Background(), "btc")
	if err != nil {
		t.Fatalf("CurrentRate() returned unexpected error: %v", err)
	}

	if rates.AssetIDBase != "BTC" {
		t.Errorf("AssetIDBase = %q, want BTC", rates.AssetIDBase)
	}
	if len(rates.Rates) != 3 {
		t.Fatalf("len(Rates) = %d, want 3", len(rates.Rates))
	}

	want := Rate{Time: "2024-02-21T00:00:00.000Z", AssetIDQuote: "USD", Rate: 3258.88}
	if rates.Rates[0] != want {
		t.Errorf("Rates[0] = %+v, want %+v", rates.Rates[0], want)
	}
}

func TestClient_CurrentRate_DecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing base", `{"rates": []}`},
		{"missing quote key", `{"asset_id_base": "BTC", "rates": [{"time": "t", "rate": 1.0}]}`},
		{"null rate", `{"asset_id_base": "BTC", "rates": [{"time": "t", "asset_id_quote": "USD", "rate": null}]}`},
		{"wrong type", `{"asset_id_base": "BTC", "rates": [{"time": "t", "asset_id_quote": "USD", "rate": "1.0"}]}`},
		{"rates not a list", `{"asset_id_base": "BTC", "rates": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&fakeRequester{body: []byte(tt.body)})

			_, err := client.CurrentRate(context.Background(), "btc")

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v (%T), want *Error", err, err)
			}
			if apiErr.Kind != KindDecode {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, KindDecode)
			}
			if apiErr.Message != decodeFailureMessage || apiErr.Detail == "" {
				t.Errorf("Message = %q, Detail = %q", apiErr.Message, apiErr.Detail)
			}
		})
	}
}

func TestClient_CurrentRate_NetworkError(t *testing.T) {
	var calls int32
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}, 3)

	_, err := client.CurrentRate(context.Background(), "nope")

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("error = %v, want network *Error", err)
	}

	var netErr *network.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error %v does not wrap *network.NetworkError", err)
	}
	if netErr.Kind != network.KindService || netErr.Service.Message != "not found" {
		t.Errorf("network error = %v, want service exception not found", netErr)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_CurrentRate_MissingAsset(t *testing.T) {
	fake := &fakeRequester{}
	client := NewClient(fake)

	if _, err := client.CurrentRate(context.Background(), "  "); !errors.Is(err, ErrMissingParameter) {
		t.Errorf("error = %v, want ErrMissingParameter", err)
	}
	if fake.calls() != 0 {
		t.Errorf("calls = %d, want 0", fake.calls())
	}
}

func TestClient_CurrentRate_UsesExchangeRateRequester(t *testing.T) {
	market := &fakeRequester{body: []byte(`[]`)}
	exrates := &fakeRequester{body: []byte(currentRatesJSON)}
	client := NewClient(market, WithExchangeRateRequester(exrates))

	if _, err := client.CurrentRate(context.Background(), "btc"); err != nil {
		t.Fatalf("CurrentRate() returned unexpected error: %v", err)
	}
	if exrates.calls() != 1 || market.calls() != 0 {
		t.Errorf("exrates calls = %d, market calls = %d, want 1 and 0", exrates.calls(), market.calls())
	}
}

func TestClient_ExchangePeriods_Query(t *testing.T) {
	fake := &fakeRequester{body: []byte(periodsJSON)}
	now := time.Date(2025, 2, 21, 15, 4, 5, 0, time.UTC)
	client := NewClient(fake, WithClock(func() time.Time { return now }))

	periods, err := client.ExchangePeriods(context.Background(), PeriodQuery{
		SourceAsset: "eth",
		TargetAsset: "brl",
		PeriodID:    "4HRS",
		Start:       now.AddDate(0, 0, -7),
	})
	if err != nil {
		t.Fatalf("ExchangePeriods() returned unexpected error: %v", err)
	}

	req := fake.requests[0]
	if req.Method != network.MethodGet {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != "/v1/exchangerate/eth/brl/history" {
		t.Errorf("Path = %q", req.Path)
	}
	wantQuery := map[string]string{
		"period_id":  "4HRS",
		"time_start": "2025-02-14",
		"time_end":   "2025-02-21",
	}
	for k, v := range wantQuery {
		if req.Query[k] != v {
			t.Errorf("query %s = %q, want %q", k, req.Query[k], v)
		}
	}

	want := ExchangePeriod{
		TimePeriodStart: "2024-12-23T00:00:00.0000000Z",
		TimePeriodEnd:   "2025-01-02T00:00:00.0000000Z",
		TimeOpen:        "2025-01-01T00:00:02.8000000Z",
		TimeClose:       "2025-01-01T23:59:59.3000000Z",
		RateOpen:        582277.1036697753,
		RateHigh:        592635.3658540217,
		RateLow:         576593.9920982684,
		RateClose:       588440.152401636,
	}
	if len(periods) != 1 || periods[0] != want {
		t.Errorf("periods = %+v, want [%+v]", periods, want)
	}
}

func TestClient_ExchangePeriods_Defaults(t *testing.T) {
	fake := &fakeRequester{body: []byte(`[]`)}
	now := time.Date(2025, 2, 21, 0, 0, 0, 0, time.UTC)
	client := NewClient(fake, WithClock(func() time.Time { return now }))

	periods, err := client.ExchangePeriods(context.Background(), PeriodQuery{})
	if err != nil {
		t.Fatalf("ExchangePeriods() returned unexpected error: %v", err)
	}
	if len(periods) != 0 {
		t.Errorf("len(periods) = %d, want 0", len(periods))
	}

	req := fake.requests[0]
	if req.Path != "/v1/exchangerate/btc/usd/history" {
		t.Errorf("Path = %q", req.Path)
	}
	if req.Query["period_id"] != "1DAY" {
		t.Errorf("period_id = %q, want 1DAY", req.Query["period_id"])
	}
	if req.Query["time_end"] != "2025-02-21" {
		t.Errorf("time_end = %q, want 2025-02-21", req.Query["time_end"])
	}
	if want := now.Add(-10000 * 24 * time.Hour).Format("2006-01-02"); req.Query["time_start"] != want {
		t.Errorf("time_start = %q, want %q", req.Query["time_start"], want)
	}
}

func TestClient_ExchangePeriods_MissingField(t *testing.T) {
	client := NewClient(&fakeRequester{body: []byte(`[{"time_period_start": "x"}]`)})

	_, err := client.ExchangePeriods(context.Background(), PeriodQuery{})

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
		t.Errorf("error = %v, want decode *Error", err)
	}
}

func TestClient_Exchanges(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/exchanges" {
			t.Errorf("path = %q, want /v1/exchanges", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(exchangesJSON))
	}, 0)

	exchanges, err := client.Exchanges(context.Background())
	if err != nil {
		t.Fatalf("Exchanges() returned unexpected error: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("len(exchanges) = %d, want 1", len(exchanges))
	}

	want := Exchange{
		ExchangeID:         "BINANCE",
		Website:            "https://www.binance.com/",
		Name:               "Binance",
		DataQuoteStart:     "2017-12-18T00:00:00.0000000Z",
		DataQuoteEnd:       "2025-02-20T00:00:00.0000000Z",
		DataOrderbookStart: "2017-12-18T00:00:00.0000000Z",
		DataOrderbookEnd:   "2025-02-20T00:00:00.0000000Z",
		DataTradeStart:     "2017-07-14T00:00:00.0000000Z",
		DataTradeEnd:       "2025-02-20T00:00:00.0000000Z",
		DataSymbolsCount:   3120,
		Volume1HrsUSD:      1234.5,
		Volume1DayUSD:      98765.25,
		Volume1MthUSD:      1000000.75,
		Rank:               1,
	}
	if exchanges[0] != want {
		t.Errorf("exchange = %+v, want %+v", exchanges[0], want)
	}
}

func TestClient_Exchanges_Cached(t *testing.T) {
	fake := &fakeRequester{body: []byte(exchangesJSON)}
	cache := newMemoryCache()
	client := NewClient(fake, WithCache(cache, time.Minute))

	for i := 0; i < 3; i++ {
		exchanges, err := client.Exchanges(context.Background())
		if err != nil {
			t.Fatalf("Exchanges() call %d returned unexpected error: %v", i, err)
		}
		if len(exchanges) != 1 || exchanges[0].ExchangeID != "BINANCE" {
			t.Errorf("call %d: exchanges = %+v", i, exchanges)
		}
	}

	if fake.calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", fake.calls())
	}
}

func TestClient_Exchanges_CacheFailureFallsThrough(t *testing.T) {
	fake := &fakeRequester{body: []byte(exchangesJSON)}
	cache := newMemoryCache()
	cache.failGet = true
	client := NewClient(fake, WithCache(cache, time.Minute))

	if _, err := client.Exchanges(context.Background()); err != nil {
		t.Fatalf("Exchanges() returned unexpected error: %v", err)
	}
	if fake.calls() != 1 {
		t.Errorf("upstream calls = %d, want 1", fake.calls())
	}
}

func TestClient_Exchanges_ErrorsNotCached(t *testing.T) {
	fake := &fakeRequester{err: network.NewConnectionError(errors.New("refused"))}
	cache := newMemoryCache()
	client := NewClient(fake, WithCache(cache, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := client.Exchanges(context.Background()); err == nil {
			t.Fatal("Exchanges() expected error, got nil")
		}
	}
	if fake.calls() != 2 {
		t.Errorf("upstream calls = %d, want 2", fake.calls())
	}
}

func TestClient_ExchangeIcons(t *testing.T) {
	fake := &fakeRequester{body: []byte(iconsJSON)}
	client := NewClient(fake)

	icons, err := client.ExchangeIcons(context.Background(), 44)
	if err != nil {
		t.Fatalf("ExchangeIcons() returned unexpected error: %v", err)
	}

	if fake.requests[0].Path != "/v1/exchanges/icons/44" {
		t.Errorf("Path = %q", fake.requests[0].Path)
	}
	if len(icons) != 2 || icons[1].ExchangeID != "KRAKEN" {
		t.Errorf("icons = %+v", icons)
	}
}

func TestClient_ExchangeIcons_InvalidSize(t *testing.T) {
	client := NewClient(&fakeRequester{})

	if _, err := client.ExchangeIcons(context.Background(), 0); !errors.Is(err, ErrMissingParameter) {
		t.Errorf("error = %v, want ErrMissingParameter", err)
	}
}

func TestClient_NonNetworkErrorIsWrapped(t *testing.T) {
	cause := errors.New("boom")
	client := NewClient(&fakeRequester{err: cause})

	_, err := client.Exchanges(context.Background())

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("error = %v, want network *Error", err)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
}
