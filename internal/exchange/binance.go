// Package exchange implements concrete ohlcv.ExchangeClient adapters against
// real crypto exchanges.
package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quantforge/fundcore/internal/ohlcv"
)

const (
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
)

// BinanceConfig configures a BinanceClient.
type BinanceConfig struct {
	APIKey    string
	SecretKey string
	Testnet   bool

	// RequestsPerSecond caps outbound klines calls. Zero uses a
	// conservative default rather than going unbounded against a shared
	// exchange rate limit.
	RequestsPerSecond float64
}

// BinanceClient fetches OHLCV candles from Binance's public klines endpoint.
// It implements ohlcv.ExchangeClient and carries no order-placement surface:
// live execution is out of scope for this client.
type BinanceClient struct {
	client  *binance.Client
	limiter *rate.Limiter
}

// NewBinanceClient builds a klines-only Binance client. APIKey/SecretKey may
// be empty since klines is a public endpoint, but a key raises the exchange's
// per-IP rate limit.
func NewBinanceClient(cfg BinanceConfig) *BinanceClient {
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		binance.UseTestnet = true
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &BinanceClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchOHLCV implements ohlcv.ExchangeClient. It maps the series' timeframe
// directly onto a Binance kline interval string (both use "1m"/"1h"/"1d"
// style widths) and strips the "/" from pair symbols ("BTC/USDT" ->
// "BTCUSDT").
func (c *BinanceClient) FetchOHLCV(ctx context.Context, symbol string, timeframe ohlcv.Timeframe, sinceMs int64, limit int) ([]ohlcv.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("binance: rate limiter: %w", err)
	}

	pair := strings.ReplaceAll(symbol, "/", "")
	svc := c.client.NewKlinesService().Symbol(pair).Interval(string(timeframe))
	if sinceMs > 0 {
		svc = svc.StartTime(sinceMs)
	}
	if limit > 0 {
		svc = svc.Limit(limit)
	}

	var klines []*binance.Kline
	var err error
	err = withRetry(func() error {
		klines, err = svc.Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("binance: fetch klines for %s %s: %w", symbol, timeframe, err)
	}

	bars := make([]ohlcv.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := klineToBar(k)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("binance: skipping malformed kline")
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func klineToBar(k *binance.Kline) (ohlcv.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return ohlcv.Bar{}, fmt.Errorf("open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return ohlcv.Bar{}, fmt.Errorf("high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return ohlcv.Bar{}, fmt.Errorf("low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return ohlcv.Bar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return ohlcv.Bar{}, fmt.Errorf("volume: %w", err)
	}
	return ohlcv.Bar{
		TimestampMs: k.OpenTime,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      volume,
	}, nil
}

// withRetry retries transient exchange errors with exponential backoff,
// matching the shape the teacher used for order placement but here guarding
// a read-only klines call.
func withRetry(op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if !isRetryable(err) {
				return err
			}
		}
		if attempt < maxRetries {
			time.Sleep(baseRetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "timeout", "429", "rate limit", "too many requests", "500", "502", "503", "504"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
