package ohlcv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DatahubRow is a single row as returned by the datahub gateway, dates
// expressed as YYYYMMDD strings the way the gateway emits them.
type DatahubRow struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DatahubGateway is the minimal surface the equity adapter needs from the
// datahub: a single endpoint fetch keyed by name, start, and end date
// (YYYYMMDD strings).
type DatahubGateway interface {
	Fetch(ctx context.Context, endpoint, symbol, startDate, endDate string) ([]DatahubRow, error)
}

// EquityAdapter is a read-through cache over a datahub gateway. It maps a
// symbol to the gateway endpoint that serves it and converts between ms
// epochs and the gateway's YYYYMMDD date strings.
type EquityAdapter struct {
	cache   *Cache
	gateway DatahubGateway
}

func NewEquityAdapter(cache *Cache, gateway DatahubGateway) *EquityAdapter {
	return &EquityAdapter{cache: cache, gateway: gateway}
}

// endpointFor maps a symbol (and, for the default case, a timeframe) to the
// datahub endpoint name: ".HK" suffix routes to the Hong Kong daily feed, a
// bare 5-letter uppercase symbol routes to the US daily feed, and everything
// else falls back to the daily/weekly/monthly endpoint matching timeframe.
func endpointFor(symbol string, timeframe Timeframe) string {
	switch {
	case strings.HasSuffix(symbol, ".HK"):
		return "hk_daily"
	case len(symbol) == 5 && symbol == strings.ToUpper(symbol):
		return "us_daily"
	default:
		switch timeframe {
		case "1w":
			return "weekly"
		case "1M":
			return "monthly"
		default:
			return "daily"
		}
	}
}

func msToYYYYMMDD(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("20060102")
}

func yyyymmddToMs(s string) (int64, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return 0, fmt.Errorf("equity adapter: bad date %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// Fetch requests [since, until] from the datahub gateway via the endpoint
// symbol maps to, upserts the returned rows into the cache, and returns the
// cached rows for [since, until]. The gateway is called on every Fetch;
// rows already in the cache do not narrow or skip that call.
func (a *EquityAdapter) Fetch(ctx context.Context, symbol string, timeframe Timeframe, since, until int64) ([]Bar, error) {
	key := SeriesKey{Symbol: symbol, Market: MarketEquity, Timeframe: timeframe}

	endpoint := endpointFor(symbol, timeframe)
	rows, err := a.gateway.Fetch(ctx, endpoint, symbol, msToYYYYMMDD(since), msToYYYYMMDD(until))
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		ts, err := yyyymmddToMs(r.Date)
		if err != nil {
			return nil, err
		}
		bars = append(bars, Bar{TimestampMs: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].TimestampMs < bars[j].TimestampMs })

	if len(bars) > 0 {
		if err := a.cache.UpsertBatch(ctx, key, bars); err != nil {
			return nil, fmt.Errorf("equity adapter: upsert: %w", err)
		}
	}

	return a.cache.Query(ctx, key, &since, &until)
}
