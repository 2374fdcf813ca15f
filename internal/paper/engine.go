package paper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/events"
	"github.com/quantforge/fundcore/internal/marketrules"
)

// PriceLookup resolves the current price and prior close for a symbol, the
// way the engine's caller (the backtest/live driver) would supply quotes.
type PriceLookup struct {
	Current   float64
	PrevClose float64
	IsST      bool
}

// SubmitRequest is the order intent passed to Engine.SubmitOrder.
type SubmitRequest struct {
	AccountID  string
	Symbol     string
	Market     string
	Side       OrderSide
	Type       OrderType
	Quantity   float64
	LimitPrice *float64
	StopLoss   *float64
	TakeProfit *float64
	StrategyID string
	Price      PriceLookup
	Now        time.Time
}

// Config mirrors spec.md §6's recognized paper-engine options.
type Config struct {
	SlippageBps float64
	Market      string // default market for orders that don't specify one
}

// Engine owns account state exclusively, caching loaded accounts for its
// lifetime and persisting after every state-changing operation.
type Engine struct {
	store     Store
	config    Config
	publisher *events.Publisher
}

// Store is the persistence contract the engine writes through on every
// state change: orders, lot mutations, and snapshots.
type Store interface {
	LoadAccount(ctx context.Context, id string) (*Account, error)
	SaveAccount(ctx context.Context, acct *Account) error
	AppendSnapshot(ctx context.Context, snap Snapshot) error
	Snapshots(ctx context.Context, accountID string) ([]Snapshot, error)
}

// NewEngine builds an Engine. pub may be nil, in which case order-fill and
// snapshot events are simply not published.
func NewEngine(store Store, cfg Config, pub *events.Publisher) *Engine {
	return &Engine{store: store, config: cfg, publisher: pub}
}

// SubmitOrder runs the ten-step rule pipeline from §4.5 in exact order;
// failing any rule returns a rejected order without mutating account state.
func (e *Engine) SubmitOrder(ctx context.Context, req SubmitRequest) (*Order, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	market := req.Market
	if market == "" {
		market = e.config.Market
	}

	order := Order{
		ID:         uuid.New().String(),
		AccountID:  req.AccountID,
		Symbol:     req.Symbol,
		Market:     market,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		StrategyID: req.StrategyID,
		CreatedAt:  now,
	}

	// Step 1: account existence.
	acct, err := e.store.LoadAccount(ctx, req.AccountID)
	if err != nil {
		order.Status = StatusRejected
		order.Reason = "Account not found"
		return &order, nil
	}

	persistRejected := func(reason string) (*Order, error) {
		order.Status = StatusRejected
		order.Reason = reason
		acct.Orders = append(acct.Orders, order)
		acct.UpdatedAt = now
		if err := e.store.SaveAccount(ctx, acct); err != nil {
			return nil, err
		}
		return &order, nil
	}

	// Step 2: market session.
	if !marketrules.IsOpen(market, now) {
		return persistRejected(fmt.Sprintf("Market %s is currently closed", market))
	}

	// Step 3: lot-size validity.
	if !marketrules.ValidLotSize(market, req.Quantity) {
		return persistRejected("Invalid lot size")
	}

	// Step 4: sellable quantity (sells only).
	if req.Side == OrderSell {
		pos, ok := acct.Positions[req.Symbol]
		if !ok {
			return persistRejected("No position to sell")
		}
		sellable := sellableQuantity(pos, now)
		if sellable < req.Quantity {
			return persistRejected("Insufficient sellable quantity")
		}
	}

	// Step 5: limit-price condition.
	if req.Type == OrderLimit {
		if req.LimitPrice == nil {
			return persistRejected("Limit order requires a limit price")
		}
		conditionMet := (req.Side == OrderBuy && req.Price.Current <= *req.LimitPrice) ||
			(req.Side == OrderSell && req.Price.Current >= *req.LimitPrice)
		if !conditionMet {
			order.Status = StatusPending
			acct.Orders = append(acct.Orders, order)
			acct.UpdatedAt = now
			if err := e.store.SaveAccount(ctx, acct); err != nil {
				return nil, err
			}
			return &order, nil
		}
	}

	// Step 6: slippage application.
	sign := 1.0
	if req.Side == OrderSell {
		sign = -1.0
	}
	fillPrice := req.Price.Current * (1 + sign*e.config.SlippageBps/10000)

	// Step 7: price-limit check.
	if low, high, limited := marketrules.PriceLimitBand(market, req.Price.PrevClose, req.Price.IsST); limited {
		if fillPrice < low || fillPrice > high {
			return persistRejected("Price outside daily limit band")
		}
	}

	// Step 8: commission.
	notional := req.Quantity * fillPrice
	commission := notional * commissionRate(market, req.Side)

	// Step 9: settlement (T+N).
	var settlableAfter *time.Time
	if req.Side == OrderBuy {
		days := marketrules.SettlementDays(market)
		if days > 0 {
			t := now.AddDate(0, 0, days)
			settlableAfter = &t
		}
	}

	// Step 10: execute.
	if req.Side == OrderBuy {
		cost := notional + commission
		if acct.Cash < cost {
			return persistRejected("Insufficient cash")
		}
		acct.Cash -= cost
		applyBuy(acct, req.Symbol, req.Quantity, fillPrice, settlableAfter)
	} else {
		proceeds := notional - commission
		if err := applySell(acct, req.Symbol, req.Quantity, now); err != nil {
			return persistRejected(err.Error())
		}
		acct.Cash += proceeds
	}

	order.Status = StatusFilled
	order.FillPrice = &fillPrice
	order.Commission = &commission
	slip := fillPrice - req.Price.Current
	order.Slippage = &slip
	acct.Orders = append(acct.Orders, order)
	acct.UpdatedAt = now

	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", acct.ID).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("quantity", req.Quantity).
		Float64("fill_price", fillPrice).
		Msg("paper order filled")

	e.publisher.Publish(events.SubjectOrderFilled, order)

	return &order, nil
}

func sellableQuantity(pos *Position, now time.Time) float64 {
	if len(pos.Lots) == 0 {
		return pos.Quantity
	}
	var sellable float64
	for _, l := range pos.Lots {
		if !l.Locked(now) {
			sellable += l.Quantity
		}
	}
	return sellable
}

func applyBuy(acct *Account, symbol string, qty, fillPrice float64, settlableAfter *time.Time) {
	pos, ok := acct.Positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol, Side: SideLong, CurrentPrice: fillPrice}
		acct.Positions[symbol] = pos
	}
	newQty := pos.Quantity + qty
	if newQty > 0 {
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + fillPrice*qty) / newQty
	}
	pos.Quantity = newQty
	pos.Lots = append(pos.Lots, Lot{Quantity: qty, EntryPrice: fillPrice, SettlableAfter: settlableAfter})
}

func applySell(acct *Account, symbol string, qty float64, now time.Time) error {
	pos, ok := acct.Positions[symbol]
	if !ok {
		return fmt.Errorf("no position to sell")
	}
	remaining := qty
	kept := pos.Lots[:0]
	for i, lot := range pos.Lots {
		if remaining <= 0 {
			kept = append(kept, pos.Lots[i:]...)
			break
		}
		if lot.Locked(now) {
			kept = append(kept, lot)
			continue
		}
		if lot.Quantity <= remaining {
			remaining -= lot.Quantity
			continue
		}
		lot.Quantity -= remaining
		remaining = 0
		kept = append(kept, lot)
	}
	pos.Lots = kept
	pos.Quantity -= qty
	if pos.Quantity <= 1e-12 {
		delete(acct.Positions, symbol)
	}
	return nil
}

// commissionRate returns the side-dependent commission rate for a market,
// modeling stamp-duty-style asymmetry on sell-side trades in markets that
// levy one.
func commissionRate(market string, side OrderSide) float64 {
	const baseRate = 0.001
	stampDuty := 0.0
	if side == OrderSell {
		switch market {
		case "SSE", "SZSE":
			stampDuty = 0.001
		}
	}
	return baseRate + stampDuty
}

// UpdatePrices marks positions to market and recomputes unrealized P&L.
func (e *Engine) UpdatePrices(ctx context.Context, accountID string, prices map[string]float64) error {
	acct, err := e.store.LoadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for symbol, price := range prices {
		pos, ok := acct.Positions[symbol]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		sign := 1.0
		if pos.Side == SideShort {
			sign = -1.0
		}
		pos.UnrealizedPnl = (price - pos.EntryPrice) * pos.Quantity * sign
	}
	acct.UpdatedAt = time.Now()
	return e.store.SaveAccount(ctx, acct)
}

// RecordSnapshot appends the current equity/cash/positions-value state and
// the daily P&L relative to the most recent prior snapshot (or initial
// capital if none).
func (e *Engine) RecordSnapshot(ctx context.Context, accountID string, at time.Time) (*Snapshot, error) {
	acct, err := e.store.LoadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positionsValue := 0.0
	for _, p := range acct.Positions {
		positionsValue += p.Quantity * p.CurrentPrice
	}
	equity := acct.Cash + positionsValue

	prior, err := e.store.Snapshots(ctx, accountID)
	if err != nil {
		return nil, err
	}
	baseline := acct.InitialCapital
	if len(prior) > 0 {
		sort.Slice(prior, func(i, j int) bool { return prior[i].Timestamp.Before(prior[j].Timestamp) })
		baseline = prior[len(prior)-1].Equity
	}

	dailyPnl := equity - baseline
	dailyPnlPct := 0.0
	if baseline != 0 {
		dailyPnlPct = dailyPnl / baseline * 100
	}

	snap := Snapshot{
		AccountID:      accountID,
		Timestamp:      at,
		Equity:         equity,
		Cash:           acct.Cash,
		PositionsValue: positionsValue,
		DailyPnl:       dailyPnl,
		DailyPnlPct:    dailyPnlPct,
	}
	if err := e.store.AppendSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	e.publisher.Publish(events.SubjectSnapshotRecorded, snap)
	return &snap, nil
}
