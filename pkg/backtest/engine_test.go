package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buyAndHold struct{ bought bool }

func (s *buyAndHold) OnBar(bar Bar, ctx *Context) (*Signal, error) {
	if s.bought {
		return nil, nil
	}
	s.bought = true
	return &Signal{Action: ActionBuy, Symbol: "X", SizePct: 100, OrderType: OrderMarket, Confidence: 1}, nil
}

func TestBuyAndHold(t *testing.T) {
	bars := []Bar{
		{TimestampMs: 0, Open: 100, High: 100, Low: 100, Close: 100},
		{TimestampMs: 1, Open: 200, High: 200, Low: 200, Close: 200},
	}
	cfg := Config{Capital: 10000, CommissionRate: 0.001, SlippageBps: 5}
	result, err := Run(context.Background(), "s1", &buyAndHold{}, bars, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 18895, result.FinalEquity, 20) // within ~0.1%
	assert.Len(t, result.EquityCurve, 2)
	assert.Len(t, result.DailyReturns, 1)
}

type noopStrategy struct{}

func (noopStrategy) OnBar(bar Bar, ctx *Context) (*Signal, error) { return nil, nil }

func TestZeroLengthInput(t *testing.T) {
	cfg := Config{Capital: 1000}
	result, err := Run(context.Background(), "s1", noopStrategy{}, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, result.FinalEquity)
	assert.Empty(t, result.EquityCurve)
}

type malformedSignalStrategy struct{}

func (malformedSignalStrategy) OnBar(bar Bar, ctx *Context) (*Signal, error) {
	return &Signal{Action: "nonsense", SizePct: 50}, nil
}

func TestMalformedSignalSkipped(t *testing.T) {
	bars := []Bar{
		{TimestampMs: 0, Close: 100},
		{TimestampMs: 1, Close: 110},
	}
	cfg := Config{Capital: 1000}
	result, err := Run(context.Background(), "s1", malformedSignalStrategy{}, bars, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, result.FinalEquity)
	assert.Empty(t, result.Trades)
}

func TestEquityCurveLengthInvariant(t *testing.T) {
	bars := make([]Bar, 10)
	for i := range bars {
		bars[i] = Bar{TimestampMs: int64(i), Close: 100 + float64(i)}
	}
	cfg := Config{Capital: 1000, CommissionRate: 0.001, SlippageBps: 5}
	result, err := Run(context.Background(), "s1", &buyAndHold{}, bars, cfg)
	require.NoError(t, err)
	assert.Len(t, result.EquityCurve, len(bars))
	assert.Len(t, result.DailyReturns, len(bars)-1)
	for _, tr := range result.Trades {
		expected := (tr.ExitPrice-tr.EntryPrice)*tr.Quantity - tr.EntryCommission - tr.ExitCommission
		assert.InDelta(t, expected, tr.PnL, 1e-6)
	}
}
