package ohlcv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisExchangeCache decorates an ExchangeClient with a short-TTL Redis
// layer, so repeated backtests/walk-forward windows hitting the same
// series don't each pay for their own exchange round trip. It sits behind
// the adapter's own Postgres cache, in front of the exchange:
// CryptoAdapter.Fetch consults Postgres first, and only its exchange calls
// reach this layer.
//
// A nil *redis.Client is accepted and makes the cache a pure pass-through,
// the same nil-safe shape events.Publisher uses for an absent NATS broker.
type RedisExchangeCache struct {
	client *redis.Client
	ttl    time.Duration
	inner  ExchangeClient
}

type barCacheEntry struct {
	Bars     []Bar     `json:"bars"`
	CachedAt time.Time `json:"cached_at"`
}

// NewRedisExchangeCache wraps inner with Redis caching. A nil client is
// valid and disables caching without the caller needing a branch.
func NewRedisExchangeCache(client *redis.Client, ttl time.Duration, inner ExchangeClient) *RedisExchangeCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisExchangeCache{client: client, ttl: ttl, inner: inner}
}

// FetchOHLCV implements ExchangeClient: Redis hit short-circuits the inner
// client; a miss or any cache error falls through to it and is cached best
// effort for a hit on the next request.
func (c *RedisExchangeCache) FetchOHLCV(ctx context.Context, symbol string, timeframe Timeframe, sinceMs int64, limit int) ([]Bar, error) {
	if c.client == nil {
		return c.inner.FetchOHLCV(ctx, symbol, timeframe, sinceMs, limit)
	}

	key := c.buildKey(symbol, timeframe, sinceMs, limit)
	if bars, ok := c.get(ctx, key); ok {
		return bars, nil
	}

	bars, err := c.inner.FetchOHLCV(ctx, symbol, timeframe, sinceMs, limit)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, bars)
	return bars, nil
}

func (c *RedisExchangeCache) get(ctx context.Context, key string) ([]Bar, bool) {
	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(cacheCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("ohlcv redis cache: get error, treating as miss")
		}
		return nil, false
	}

	var entry barCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ohlcv redis cache: failed to unmarshal entry")
		return nil, false
	}
	return entry.Bars, true
}

func (c *RedisExchangeCache) set(ctx context.Context, key string, bars []Bar) {
	data, err := json.Marshal(barCacheEntry{Bars: bars, CachedAt: time.Now()})
	if err != nil {
		log.Warn().Err(err).Msg("ohlcv redis cache: failed to marshal entry")
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ohlcv redis cache: failed to cache entry")
	}
}

// Health reports whether the backing Redis connection is reachable. A nil
// client is healthy by definition: caching is simply off.
func (c *RedisExchangeCache) Health(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("ohlcv redis cache: health check failed: %w", err)
	}
	return nil
}

func (c *RedisExchangeCache) buildKey(symbol string, timeframe Timeframe, sinceMs int64, limit int) string {
	return fmt.Sprintf("fundcore:ohlcv:%s:%s:%d:%d", symbol, timeframe, sinceMs, limit)
}
