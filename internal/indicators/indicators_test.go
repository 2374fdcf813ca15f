package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
	assert.Len(t, out, len(values))
}

func TestEMASeededBySMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(values, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9) // SMA(1,2,3)
	k := 2.0 / 4.0
	want := 4*k + 2*(1-k)
	assert.InDelta(t, want, out[3], 1e-9)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	out := RSI(values, 14)
	assert.InDelta(t, 100.0, out[14], 1e-9)
}

func TestBollingerBandsWidth(t *testing.T) {
	values := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16}
	bb := BollingerBands(values, 5, 2)
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(bb.Middle[i]))
	}
	assert.False(t, math.IsNaN(bb.Middle[4]))
	assert.True(t, bb.Upper[9] > bb.Middle[9])
	assert.True(t, bb.Lower[9] < bb.Middle[9])
}

func TestATRFirstValueIsHighMinusLow(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{8, 9, 10}
	closes := []float64{9, 10, 11}
	out := ATR(highs, lows, closes, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 2.0, out[1], 1e-9) // avg of TR[0]=2, TR[1]=2
}

func TestMACDPropagatesNaN(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i + 1)
	}
	res := MACD(values, 12, 26, 9)
	assert.True(t, math.IsNaN(res.MACD[0]))
	assert.False(t, math.IsNaN(res.MACD[len(values)-1]))
	assert.Len(t, res.Signal, len(values))
	assert.Len(t, res.Histogram, len(values))
}
