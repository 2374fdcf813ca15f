package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkForwardTooFewBars(t *testing.T) {
	bars := make([]Bar, 4)
	result, err := RunWalkForward(context.Background(), "s1", func() Strategy { return noopStrategy{} }, bars, Config{Capital: 1000}, WalkForwardOptions{Windows: 5})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Empty(t, result.Windows)
}

func TestWalkForwardNonOverlap(t *testing.T) {
	bars := make([]Bar, 100)
	for i := range bars {
		bars[i] = Bar{TimestampMs: int64(i), Close: 100 + float64(i%7)}
	}
	result, err := RunWalkForward(context.Background(), "s1", func() Strategy { return noopStrategy{} }, bars, Config{Capital: 1000}, WalkForwardOptions{})
	require.NoError(t, err)
	for i := 0; i+1 < len(result.Windows); i++ {
		assert.LessOrEqual(t, result.Windows[i].TestEndMs, result.Windows[i+1].TrainStartMs)
		assert.LessOrEqual(t, result.Windows[i].TrainEndMs, result.Windows[i].TestStartMs)
	}
}
