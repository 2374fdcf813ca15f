// Package indicators implements the pure numeric functions used by the
// backtest engine (regime detection) and the backtest CLI's SMA-cross
// strategy. Every function
// returns a slice the same length as its input, with NaN in warm-up
// positions, and holds no state between calls.
package indicators

import "math"

// SMA returns the rolling arithmetic mean over period values.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average, seeded by the SMA of the
// first period values, then EMA_i = value_i*k + EMA_{i-1}*(1-k), k = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(values) < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed
	prev := seed
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI computes the Wilder-smoothed Relative Strength Index. The first
// period values are undefined; when avgLoss is 0, RSI is 100.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(values) < period+1 {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDResult holds the three same-length arrays the MACD indicator produces.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD returns MACD=fastEMA-slowEMA, Signal=EMA(MACD, signal), Histogram=MACD-Signal.
// NaN windows propagate through every stage.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd := make([]float64, len(values))
	for i := range values {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			macd[i] = math.NaN()
		} else {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	sig := emaSkippingNaN(macd, signal)

	hist := make([]float64, len(values))
	for i := range values {
		if math.IsNaN(macd[i]) || math.IsNaN(sig[i]) {
			hist[i] = math.NaN()
		} else {
			hist[i] = macd[i] - sig[i]
		}
	}

	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}

// emaSkippingNaN computes an EMA over a series that may have a NaN prefix,
// seeding once `period` defined values have accumulated.
func emaSkippingNaN(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 {
		return out
	}

	k := 2.0 / (float64(period) + 1.0)
	var seedSum float64
	seedCount := 0
	seedStart := -1
	var prev float64
	seeded := false

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !seeded {
			if seedStart == -1 {
				seedStart = i
			}
			seedSum += v
			seedCount++
			if seedCount == period {
				prev = seedSum / float64(period)
				out[i] = prev
				seeded = true
			}
			continue
		}
		prev = v*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// BollingerResult holds the middle/upper/lower bands.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// BollingerBands computes middle=SMA, upper/lower = middle +/- k*sigma, with
// sigma the sample standard deviation over the trailing window, computed via
// a two-pass algorithm to avoid catastrophic cancellation.
func BollingerBands(values []float64, period int, k float64) BollingerResult {
	mid := SMA(values, period)
	upper := make([]float64, len(values))
	lower := make([]float64, len(values))
	for i := range values {
		upper[i] = math.NaN()
		lower[i] = math.NaN()
		if i < period-1 {
			continue
		}
		window := values[i-period+1 : i+1]
		mean := mid[i]
		var sumSq float64
		for _, v := range window {
			d := v - mean
			sumSq += d * d
		}
		variance := sumSq / float64(period-1)
		if period < 2 {
			variance = 0
		}
		sigma := math.Sqrt(variance)
		upper[i] = mean + k*sigma
		lower[i] = mean - k*sigma
	}
	return BollingerResult{Middle: mid, Upper: upper, Lower: lower}
}

// ATR computes the Average True Range: TrueRange = max(H-L, |H-prevClose|,
// |L-prevClose|), the first TR uses H-L only, then Wilder smoothing.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n == 0 || period < 1 {
		return out
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	if n < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	avg := sum / float64(period)
	out[period-1] = avg
	for i := period; i < n; i++ {
		avg = (avg*float64(period-1) + tr[i]) / float64(period)
		out[i] = avg
	}
	return out
}
