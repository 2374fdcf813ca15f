package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandSharpe(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, 0.005, -0.01}
	got := sharpeRatio(returns)
	assert.InDelta(t, 2.476, got, 0.01)
}

func TestHandDrawdown(t *testing.T) {
	equity := []float64{100, 80, 60, 90, 100, 50}
	got := maxDrawdownPct(equity)
	assert.InDelta(t, -50.0, got, 1e-9)
}

func TestSortinoAllPositiveIsInf(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.005}
	got := sortinoRatio(returns)
	assert.True(t, isPosInf(got))
}

func TestProfitFactorNoLosses(t *testing.T) {
	result := &Result{
		InitialCapital: 1000,
		FinalEquity:    1100,
		EquityCurve:    []float64{1000, 1100},
		Trades:         []TradeRecord{{PnL: 10}, {PnL: 20}},
	}
	populateMetrics(result)
	assert.True(t, isPosInf(result.ProfitFactor))
}

func TestProfitFactorNoWins(t *testing.T) {
	result := &Result{
		InitialCapital: 1000,
		FinalEquity:    900,
		EquityCurve:    []float64{1000, 900},
		Trades:         []TradeRecord{{PnL: -10}},
	}
	populateMetrics(result)
	assert.Equal(t, 0.0, result.ProfitFactor)
}

func isPosInf(f float64) bool {
	return f > 1e300
}
