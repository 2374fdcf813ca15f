package ohlcv

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ExchangeClient is the minimal surface a crypto exchange must offer the
// adapter: fetch candles starting at sinceMs, at most limit rows.
type ExchangeClient interface {
	FetchOHLCV(ctx context.Context, symbol string, timeframe Timeframe, sinceMs int64, limit int) ([]Bar, error)
}

// CryptoAdapter is a read-through cache over an exchange client: it serves
// from Cache when enough rows are already present, and otherwise fetches the
// missing tail from the exchange and upserts it before returning.
type CryptoAdapter struct {
	cache    *Cache
	exchange ExchangeClient
}

func NewCryptoAdapter(cache *Cache, exchange ExchangeClient) *CryptoAdapter {
	return &CryptoAdapter{cache: cache, exchange: exchange}
}

// Fetch implements the three-step read-through rule: full cache hit, partial
// hit with a backfill from the exchange, or a full miss. Exchange failures
// propagate unchanged.
func (a *CryptoAdapter) Fetch(ctx context.Context, symbol string, timeframe Timeframe, since *int64, limit int) ([]Bar, error) {
	key := SeriesKey{Symbol: symbol, Market: MarketCrypto, Timeframe: timeframe}

	rng, err := a.cache.GetRange(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("crypto adapter: range lookup: %w", err)
	}

	// Step 1: cache already holds at least `limit` rows at-or-after `since`.
	if rng != nil && since != nil && limit > 0 {
		cached, err := a.cache.Query(ctx, key, since, nil)
		if err != nil {
			return nil, fmt.Errorf("crypto adapter: query: %w", err)
		}
		if len(cached) >= limit {
			return cached[:limit], nil
		}
	}

	// Step 2: partial hit, backfill from max(cachedLatest+1, since).
	if rng != nil {
		fetchFrom := rng.LatestMs + 1
		if since != nil && *since > fetchFrom {
			fetchFrom = *since
		}
		fresh, err := a.exchange.FetchOHLCV(ctx, symbol, timeframe, fetchFrom, limit)
		if err != nil {
			return nil, err
		}
		if len(fresh) > 0 {
			if err := a.cache.UpsertBatch(ctx, key, fresh); err != nil {
				return nil, fmt.Errorf("crypto adapter: upsert backfill: %w", err)
			}
		}
		lowerBound := int64(0)
		if since != nil {
			lowerBound = *since
		}
		full, err := a.cache.Query(ctx, key, &lowerBound, nil)
		if err != nil {
			return nil, fmt.Errorf("crypto adapter: query after backfill: %w", err)
		}
		log.Debug().Str("series", key.String()).Int("fetched", len(fresh)).Int("returned", len(full)).Msg("crypto adapter backfilled")
		return full, nil
	}

	// Step 3: full miss.
	fetchFrom := int64(0)
	if since != nil {
		fetchFrom = *since
	}
	fresh, err := a.exchange.FetchOHLCV(ctx, symbol, timeframe, fetchFrom, limit)
	if err != nil {
		return nil, err
	}
	if len(fresh) > 0 {
		if err := a.cache.UpsertBatch(ctx, key, fresh); err != nil {
			return nil, fmt.Errorf("crypto adapter: upsert fresh: %w", err)
		}
	}
	return fresh, nil
}
