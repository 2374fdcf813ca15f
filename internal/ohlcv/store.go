package ohlcv

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Cache persists candles keyed by (symbol, market, timeframe, timestamp) and
// serves ordered range queries. Distinct (symbol, market, timeframe) triples
// never collide, even when the same symbol string is reused across markets.
type Cache struct {
	pool *pgxpool.Pool
}

// NewCache wraps an existing pool. Schema is managed by the migrations in
// the repo's migrations/ directory, applied via cmd/migrate.
func NewCache(pool *pgxpool.Pool) *Cache {
	return &Cache{pool: pool}
}

// UpsertBatch writes rows atomically: either all rows land or none do.
// Existing rows sharing a (symbol, market, timeframe, timestamp) key are
// overwritten.
func (c *Cache) UpsertBatch(ctx context.Context, key SeriesKey, rows []Bar) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ohlcv: begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	const stmt = `
		INSERT INTO ohlcv (symbol, market, timeframe, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, market, timeframe, timestamp)
		DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume
	`
	for _, r := range rows {
		batch.Queue(stmt, key.Symbol, string(key.Market), string(key.Timeframe),
			r.TimestampMs, r.Open, r.High, r.Low, r.Close, r.Volume)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("ohlcv: upsert row: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("ohlcv: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ohlcv: commit upsert: %w", err)
	}

	log.Debug().
		Str("series", key.String()).
		Int("rows", len(rows)).
		Msg("upserted ohlcv batch")

	return nil
}

// Query returns rows for key ordered ascending by timestamp, optionally
// bounded by since/until (either may be nil for an open bound).
func (c *Cache) Query(ctx context.Context, key SeriesKey, since, until *int64) ([]Bar, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM ohlcv
		WHERE symbol = $1 AND market = $2 AND timeframe = $3
	`
	args := []interface{}{key.Symbol, string(key.Market), string(key.Timeframe)}
	argN := 4

	if since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argN)
		args = append(args, *since)
		argN++
	}
	if until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argN)
		args = append(args, *until)
		argN++
	}
	query += " ORDER BY timestamp ASC"

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ohlcv: query: %w", err)
	}
	defer rows.Close()

	var out []Bar
	for rows.Next() {
		var b Bar
		if err := rows.Scan(&b.TimestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("ohlcv: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ohlcv: rows: %w", err)
	}
	return out, nil
}

// GetRange returns the earliest/latest cached timestamps for key, or nil if
// nothing is cached yet.
func (c *Cache) GetRange(ctx context.Context, key SeriesKey) (*Range, error) {
	var earliest, latest *int64
	err := c.pool.QueryRow(ctx, `
		SELECT MIN(timestamp), MAX(timestamp)
		FROM ohlcv
		WHERE symbol = $1 AND market = $2 AND timeframe = $3
	`, key.Symbol, string(key.Market), string(key.Timeframe)).Scan(&earliest, &latest)
	if err != nil {
		return nil, fmt.Errorf("ohlcv: get range: %w", err)
	}
	if earliest == nil || latest == nil {
		return nil, nil
	}
	return &Range{EarliestMs: *earliest, LatestMs: *latest}, nil
}

// Close is idempotent; the underlying pool is owned by the caller (internal/db.DB)
// and closed there, so Close here is a no-op kept for interface symmetry with
// the other stores.
func (c *Cache) Close() error {
	return nil
}
