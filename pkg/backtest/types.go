// Package backtest implements a deterministic, bar-by-bar strategy simulator
// and its companion walk-forward validator.
package backtest

import "github.com/rs/zerolog"

// Bar is one OHLCV candle as fed to the engine.
type Bar struct {
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Action is the intent carried by a Signal.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
)

// OrderType labels a Signal's order kind. The backtest engine does not read
// it: every signal fills at the bar's close adjusted for slippage, and
// LimitPrice is ignored.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Signal is what a strategy's OnBar returns to request a state change.
type Signal struct {
	Action     Action
	Symbol     string
	SizePct    float64 // [0,100], percentage of current equity
	OrderType  OrderType
	LimitPrice *float64
	StopLoss   *float64
	TakeProfit *float64
	Reason     string
	Confidence float64 // [0,1]
}

// Valid reports whether the signal carries a well-formed action and size,
// per §4.3's "malformed signals are silently skipped" edge case.
func (s *Signal) Valid() bool {
	if s == nil {
		return false
	}
	switch s.Action {
	case ActionBuy, ActionSell, ActionClose:
	default:
		return false
	}
	if s.SizePct < 0 || s.SizePct > 100 {
		return false
	}
	return true
}

// PortfolioSnapshot is the read-only view of account state a strategy sees.
type PortfolioSnapshot struct {
	Cash     float64
	Equity   float64
	Position *Position // nil if flat
}

// Context is passed to Strategy.OnBar for every bar; Memory is owned by the
// engine and reset per backtest / per walk-forward window.
type Context struct {
	Portfolio  PortfolioSnapshot
	History    []Bar // bars[0..=i], inclusive of the current bar
	Regime     string
	Memory     map[string]any
	Logger     zerolog.Logger
}

// Strategy is the capability set a strategy implementation must expose.
// OnBar is called for every bar that no stop-loss/take-profit exit consumed;
// Init (see Initializer) is called once before the first bar when
// implemented. Run never calls OnDayEnd (see DayEnder).
type Strategy interface {
	OnBar(bar Bar, ctx *Context) (*Signal, error)
}

// DayEnder declares an end-of-day hook. The backtest engine does not invoke
// it.
type DayEnder interface {
	OnDayEnd(ctx *Context) error
}

// Initializer is implemented by strategies that need one-time setup.
type Initializer interface {
	Init(ctx *Context) error
}

// Position is the engine's single open position per symbol (the backtest
// engine runs one account, one strategy at a time; see §4.3).
type Position struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
	StopLoss   *float64
	TakeProfit *float64
}

// TradeRecord is one closed round-trip.
type TradeRecord struct {
	Symbol          string
	EntryTimeMs     int64
	ExitTimeMs      int64
	Quantity        float64
	EntryPrice      float64
	ExitPrice       float64
	EntryCommission float64
	ExitCommission  float64
	PnL             float64
	Reason          string
}

// Config holds the parameters the backtest engine needs; Capital is required.
type Config struct {
	Capital        float64
	CommissionRate float64
	SlippageBps    float64
	Market         string
}

// Result is the full output of a single backtest run.
type Result struct {
	StrategyID     string
	StartMs        int64
	EndMs          int64
	InitialCapital float64
	FinalEquity    float64
	TotalReturnPct float64
	Sharpe         float64
	Sortino        float64
	MaxDrawdownPct float64
	Calmar         float64
	WinRatePct     float64
	ProfitFactor   float64
	TotalTrades    int
	Trades         []TradeRecord
	EquityCurve    []float64
	DailyReturns   []float64
}
