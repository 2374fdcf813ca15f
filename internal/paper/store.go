package paper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantforge/fundcore/internal/coreerr"
)

// PostgresStore persists accounts, orders, and snapshots via pgx. Positions
// (with their nested lots) are stored as a single JSONB column per account:
// the account is always loaded and saved as a whole, so there is no
// row-per-position query this spec needs that JSONB can't serve, and it
// keeps position+lot mutation atomic with the rest of the account row.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu    sync.Mutex
	cache map[string]*Account // accounts are loaded lazily and cached for the engine's lifetime
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, cache: map[string]*Account{}}
}

type positionsColumn map[string]*Position

func (s *PostgresStore) LoadAccount(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	if acct, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return acct, nil
	}
	s.mu.Unlock()

	var (
		name                 string
		initialCapital, cash float64
		positionsJSON        []byte
		createdAt, updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT name, initial_capital, cash, positions, created_at, updated_at
		FROM paper_accounts WHERE id = $1
	`, id).Scan(&name, &initialCapital, &cash, &positionsJSON, &createdAt, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, coreerr.NewNotFound("paper: account %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("paper: load account: %w", err)
	}

	var positions positionsColumn
	if err := json.Unmarshal(positionsJSON, &positions); err != nil {
		return nil, fmt.Errorf("paper: decode positions: %w", err)
	}
	if positions == nil {
		positions = positionsColumn{}
	}

	orders, err := s.loadOrders(ctx, id)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:             id,
		Name:           name,
		InitialCapital: initialCapital,
		Cash:           cash,
		Positions:      positions,
		Orders:         orders,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}

	s.mu.Lock()
	s.cache[id] = acct
	s.mu.Unlock()
	return acct, nil
}

func (s *PostgresStore) loadOrders(ctx context.Context, accountID string) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, market, side, type, quantity, limit_price, stop_loss, take_profit,
			status, created_at, fill_price, commission, slippage, reason, strategy_id
		FROM paper_orders WHERE account_id = $1 ORDER BY created_at ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("paper: load orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var strategyID *string
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Market, &o.Side, &o.Type, &o.Quantity,
			&o.LimitPrice, &o.StopLoss, &o.TakeProfit, &o.Status, &o.CreatedAt,
			&o.FillPrice, &o.Commission, &o.Slippage, &o.Reason, &strategyID); err != nil {
			return nil, fmt.Errorf("paper: scan order: %w", err)
		}
		o.AccountID = accountID
		if strategyID != nil {
			o.StrategyID = *strategyID
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveAccount persists acct's top-level row (positions as JSONB) and any
// orders not yet written, then refreshes the cache entry.
func (s *PostgresStore) SaveAccount(ctx context.Context, acct *Account) error {
	if acct == nil {
		return nil
	}

	positionsJSON, err := json.Marshal(acct.Positions)
	if err != nil {
		return fmt.Errorf("paper: encode positions: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("paper: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO paper_accounts (id, name, initial_capital, cash, positions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, cash = EXCLUDED.cash, positions = EXCLUDED.positions, updated_at = EXCLUDED.updated_at
	`, acct.ID, acct.Name, acct.InitialCapital, acct.Cash, positionsJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return fmt.Errorf("paper: upsert account: %w", err)
	}

	for _, o := range acct.Orders {
		_, err = tx.Exec(ctx, `
			INSERT INTO paper_orders (id, account_id, symbol, market, side, type, quantity,
				limit_price, stop_loss, take_profit, status, created_at, fill_price, commission, slippage, reason, strategy_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (id) DO NOTHING
		`, o.ID, acct.ID, o.Symbol, o.Market, o.Side, o.Type, o.Quantity, o.LimitPrice, o.StopLoss,
			o.TakeProfit, o.Status, o.CreatedAt, o.FillPrice, o.Commission, o.Slippage, o.Reason, nullableString(o.StrategyID))
		if err != nil {
			return fmt.Errorf("paper: upsert order: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("paper: commit save: %w", err)
	}

	s.mu.Lock()
	s.cache[acct.ID] = acct
	s.mu.Unlock()
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AppendSnapshot writes snap; the snapshot table is append-only.
func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO paper_equity_snapshots (account_id, timestamp, equity, cash, positions_value, daily_pnl, daily_pnl_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, timestamp) DO NOTHING
	`, snap.AccountID, snap.Timestamp, snap.Equity, snap.Cash, snap.PositionsValue, snap.DailyPnl, snap.DailyPnlPct)
	if err != nil {
		return fmt.Errorf("paper: append snapshot: %w", err)
	}
	return nil
}

// Snapshots returns the full snapshot series for accountID, ascending by time.
func (s *PostgresStore) Snapshots(ctx context.Context, accountID string) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp, equity, cash, positions_value, daily_pnl, daily_pnl_pct
		FROM paper_equity_snapshots WHERE account_id = $1 ORDER BY timestamp ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("paper: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap := Snapshot{AccountID: accountID}
		if err := rows.Scan(&snap.Timestamp, &snap.Equity, &snap.Cash, &snap.PositionsValue, &snap.DailyPnl, &snap.DailyPnlPct); err != nil {
			return nil, fmt.Errorf("paper: scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CreateAccount inserts a brand new account with initialCapital as both
// cash and capital, no positions, no orders.
func (s *PostgresStore) CreateAccount(ctx context.Context, id, name string, initialCapital float64, now time.Time) (*Account, error) {
	acct := &Account{
		ID:             id,
		Name:           name,
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      positionsColumn{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}
