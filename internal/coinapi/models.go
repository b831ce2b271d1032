package coinapi

import "strings"

// CurrentRates is the response of GET /v1/exchangerate/{asset}
type CurrentRates struct {
	AssetIDBase string `json:"asset_id_base"`
	Rates       []Rate `json:"rates"`
}

// Rate is one quote of the base asset
type Rate struct {
	Time         string  `json:"time"`
	AssetIDQuote string  `json:"asset_id_quote"`
	Rate         float64 `json:"rate"`
}

// Find returns the rate quoted in asset, matched case-insensitively
func (c CurrentRates) Find(asset string) (Rate, bool) {
	for _, r := range c.Rates {
		if strings.EqualFold(r.AssetIDQuote, asset) {
			return r, true
		}
	}
	return Rate{}, false
}

// ExchangePeriod is one OHLC bucket of the rate history
type ExchangePeriod struct {
	TimePeriodStart string  `json:"time_period_start"`
	TimePeriodEnd   string  `json:"time_period_end"`
	TimeOpen        string  `json:"time_open"`
	TimeClose       string  `json:"time_close"`
	RateOpen        float64 `json:"rate_open"`
	RateHigh        float64 `json:"rate_high"`
	RateLow         float64 `json:"rate_low"`
	RateClose       float64 `json:"rate_close"`
}

// Exchange is the metadata of one exchange
type Exchange struct {
	ExchangeID         string  `json:"exchange_id"`
	Website            string  `json:"website"`
	Name               string  `json:"name"`
	DataQuoteStart     string  `json:"data_quote_start"`
	DataQuoteEnd       string  `json:"data_quote_end"`
	DataOrderbookStart string  `json:"data_orderbook_start"`
	DataOrderbookEnd   string  `json:"data_orderbook_end"`
	DataTradeStart     string  `json:"data_trade_start"`
	DataTradeEnd       string  `json:"data_trade_end"`
	DataSymbolsCount   int     `json:"data_symbols_count"`
	Volume1HrsUSD      float64 `json:"volume_1hrs_usd"`
	Volume1DayUSD      float64 `json:"volume_1day_usd"`
	Volume1MthUSD      float64 `json:"volume_1mth_usd"`
	Rank               int     `json:"rank"`
}

// ExchangeIcon links an exchange to its icon
type ExchangeIcon struct {
	ExchangeID string `json:"exchange_id"`
	URL        string `json:"url"`
}

var (
	currentRatesKeys = []string{"asset_id_base", "rates"}
	rateKeys         = []string{"time", "asset_id_quote", "rate"}
	periodKeys       = []string{
		"time_period_start", "time_period_end", "time_open", "time_close",
		"rate_open", "rate_high", "rate_low", "rate_close",
	}
	exchangeKeys = []string{
		"exchange_id", "website", "name",
		"data_quote_start", "data_quote_end",
		"data_orderbook_start", "data_orderbook_end",
		"data_trade_start", "data_trade_end",
		"data_symbols_count", "volume_1hrs_usd", "volume_1day_usd", "volume_1mth_usd", "rank",
	}
	iconKeys = []string{"exchange_id", "url"}
)
