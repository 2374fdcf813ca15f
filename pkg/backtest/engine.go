package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/indicators"
)

// lot is one buy tranche inside the engine's single open position. The
// engine supports only long positions: Signal has no "side", only
// buy/sell/close, so short-selling is out of scope for this simulator.
type lot struct {
	quantity    float64
	entryPrice  float64
	commission  float64
	entryTimeMs int64
}

type openPosition struct {
	symbol     string
	lots       []lot
	stopLoss   *float64
	takeProfit *float64
}

func (p *openPosition) quantity() float64 {
	var q float64
	for _, l := range p.lots {
		q += l.quantity
	}
	return q
}

func (p *openPosition) entryPrice() float64 {
	var notional, qty float64
	for _, l := range p.lots {
		notional += l.quantity * l.entryPrice
		qty += l.quantity
	}
	if qty == 0 {
		return 0
	}
	return notional / qty
}

// Run simulates strategy over bars under cfg, starting from a fresh memory
// map, and returns the full Result. strategyID is carried through
// verbatim for the caller's bookkeeping.
func Run(ctx context.Context, strategyID string, strategy Strategy, bars []Bar, cfg Config) (*Result, error) {
	result := &Result{
		StrategyID:     strategyID,
		InitialCapital: cfg.Capital,
		EquityCurve:    make([]float64, len(bars)),
	}

	if len(bars) == 0 {
		result.FinalEquity = cfg.Capital
		result.Sharpe = math.NaN()
		result.Sortino = math.NaN()
		return result, nil
	}

	result.StartMs = bars[0].TimestampMs
	result.EndMs = bars[len(bars)-1].TimestampMs

	cash := cfg.Capital
	var pos *openPosition
	memory := make(map[string]any)

	if init, ok := strategy.(Initializer); ok {
		if err := init.Init(&Context{Memory: memory}); err != nil {
			return nil, fmt.Errorf("strategy init: %w", err)
		}
	}

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Step 1: mark-to-market is implicit — equity is computed from bar.Close below.

		closes := closesUpTo(bars, i)
		regime := indicators.DetectRegime(closes)

		triggered := false
		if pos != nil {
			exitPrice, reason, hit := checkStopAndTarget(pos, bar)
			if hit {
				result.Trades = append(result.Trades, closePosition(pos, exitPrice, 1.0, cfg, bar.TimestampMs, reason)...)
				cash += exitProceeds(pos, exitPrice, 1.0, cfg)
				pos = nil
				triggered = true
			}
		}

		if !triggered {
			var positionView *Position
			if pos != nil {
				positionView = &Position{Symbol: pos.symbol, Quantity: pos.quantity(), EntryPrice: pos.entryPrice(), StopLoss: pos.stopLoss, TakeProfit: pos.takeProfit}
			}
			equity := cash
			if pos != nil {
				equity += pos.quantity() * bar.Close
			}

			sctx := &Context{
				Portfolio: PortfolioSnapshot{Cash: cash, Equity: equity, Position: positionView},
				History:   bars[:i+1],
				Regime:    string(regime),
				Memory:    memory,
				Logger:    log.Logger,
			}

			signal, err := strategy.OnBar(bar, sctx)
			if err != nil {
				log.Warn().Err(err).Int("bar", i).Msg("strategy onBar error, treated as no-op")
			} else if signal != nil {
				if !signal.Valid() {
					log.Warn().Int("bar", i).Str("action", string(signal.Action)).Msg("malformed signal skipped")
				} else {
					switch signal.Action {
					case ActionBuy:
						cash, pos = applyBuy(cash, pos, signal, bar, cfg)
					case ActionSell, ActionClose:
						if pos != nil {
							fraction := 1.0
							if signal.Action == ActionSell {
								fraction = signal.SizePct / 100
								if fraction <= 0 {
									fraction = 1.0
								}
							}
							fillPrice := bar.Close * (1 - cfg.SlippageBps/10000)
							result.Trades = append(result.Trades, closePosition(pos, fillPrice, fraction, cfg, bar.TimestampMs, signal.Reason)...)
							cash += exitProceeds(pos, fillPrice, fraction, cfg)
							pos = consumeFraction(pos, fraction)
						}
					}
				}
			}
		}

		if pos != nil && i == len(bars)-1 {
			fillPrice := bar.Close
			result.Trades = append(result.Trades, closePosition(pos, fillPrice, 1.0, cfg, bar.TimestampMs, "end-of-data")...)
			cash += exitProceeds(pos, fillPrice, 1.0, cfg)
			pos = nil
		}

		equity := cash
		if pos != nil {
			equity += pos.quantity() * bar.Close
		}
		result.EquityCurve[i] = equity
	}

	result.FinalEquity = result.EquityCurve[len(result.EquityCurve)-1]
	populateMetrics(result)
	return result, nil
}

func closesUpTo(bars []Bar, i int) []float64 {
	out := make([]float64, i+1)
	for j := 0; j <= i; j++ {
		out[j] = bars[j].Close
	}
	return out
}

// checkStopAndTarget tests stop-loss/take-profit against bar.low/bar.high.
func checkStopAndTarget(pos *openPosition, bar Bar) (exitPrice float64, reason string, hit bool) {
	if pos.stopLoss != nil && bar.Low <= *pos.stopLoss {
		return *pos.stopLoss, "stop-loss", true
	}
	if pos.takeProfit != nil && bar.High >= *pos.takeProfit {
		return *pos.takeProfit, "take-profit", true
	}
	return 0, "", false
}

func applyBuy(cash float64, pos *openPosition, signal *Signal, bar Bar, cfg Config) (float64, *openPosition) {
	fillPrice := bar.Close * (1 + cfg.SlippageBps/10000)
	equity := cash
	if pos != nil {
		equity += pos.quantity() * bar.Close
	}
	qty := math.Floor((equity * signal.SizePct / 100) / (fillPrice * (1 + cfg.CommissionRate)))
	if qty <= 0 {
		return cash, pos
	}
	commission := fillPrice * qty * cfg.CommissionRate
	cost := qty*fillPrice + commission
	if cash < cost {
		return cash, pos
	}
	if pos == nil {
		pos = &openPosition{symbol: signal.Symbol}
	}
	pos.lots = append(pos.lots, lot{quantity: qty, entryPrice: fillPrice, commission: commission, entryTimeMs: bar.TimestampMs})
	if signal.StopLoss != nil {
		pos.stopLoss = signal.StopLoss
	}
	if signal.TakeProfit != nil {
		pos.takeProfit = signal.TakeProfit
	}
	return cash - cost, pos
}

// closePosition consumes `fraction` of the position FIFO across lots and
// returns one TradeRecord per (partially or fully) consumed lot.
func closePosition(pos *openPosition, exitPrice, fraction float64, cfg Config, exitTimeMs int64, reason string) []TradeRecord {
	totalQty := pos.quantity()
	sellQty := totalQty * fraction
	totalCommission := exitPrice * sellQty * cfg.CommissionRate

	var trades []TradeRecord
	remaining := sellQty
	for _, l := range pos.lots {
		if remaining <= 0 {
			break
		}
		chunk := math.Min(l.quantity, remaining)
		if chunk <= 0 {
			continue
		}
		chunkFractionOfLot := chunk / l.quantity
		entryCommission := l.commission * chunkFractionOfLot
		exitCommission := totalCommission * (chunk / sellQty)
		pnl := (exitPrice-l.entryPrice)*chunk - entryCommission - exitCommission
		trades = append(trades, TradeRecord{
			Symbol:          pos.symbol,
			EntryTimeMs:     l.entryTimeMs,
			ExitTimeMs:      exitTimeMs,
			Quantity:        chunk,
			EntryPrice:      l.entryPrice,
			ExitPrice:       exitPrice,
			EntryCommission: entryCommission,
			ExitCommission:  exitCommission,
			PnL:             pnl,
			Reason:          reason,
		})
		remaining -= chunk
	}
	return trades
}

func exitProceeds(pos *openPosition, exitPrice, fraction float64, cfg Config) float64 {
	sellQty := pos.quantity() * fraction
	commission := exitPrice * sellQty * cfg.CommissionRate
	return sellQty*exitPrice - commission
}

// consumeFraction removes the sold quantity from the position's lots FIFO,
// returning nil if the position is fully closed.
func consumeFraction(pos *openPosition, fraction float64) *openPosition {
	totalQty := pos.quantity()
	remaining := totalQty * fraction
	var newLots []lot
	for _, l := range pos.lots {
		if remaining <= 0 {
			newLots = append(newLots, l)
			continue
		}
		if l.quantity <= remaining {
			remaining -= l.quantity
			continue
		}
		l.commission *= (l.quantity - remaining) / l.quantity
		l.quantity -= remaining
		remaining = 0
		newLots = append(newLots, l)
	}
	if len(newLots) == 0 {
		return nil
	}
	pos.lots = newLots
	return pos
}
