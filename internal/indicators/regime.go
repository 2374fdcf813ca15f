package indicators

import (
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
)

// Regime is a coarse market-condition label the backtest engine attaches to
// the per-bar context so strategies can branch without recomputing indicators.
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeVolatile     Regime = "volatile"
)

// DetectRegime classifies the most recent bar of a closing-price history
// using cinar/indicator's EMA and Bollinger band-width channels: a wide band
// relative to price marks "volatile", otherwise trend direction from a fast
// vs. slow EMA crossover decides trending vs. ranging.
func DetectRegime(closes []float64) Regime {
	if len(closes) < 20 {
		return RegimeRanging
	}

	fastCh := toChannel(closes)
	fast := drain(trend.NewEmaWithPeriod[float64](10).Compute(fastCh))

	slowCh := toChannel(closes)
	slow := drain(trend.NewEmaWithPeriod[float64](20).Compute(slowCh))

	bbCh := toChannel(closes)
	bb := volatility.NewBollingerBandsWithPeriod[float64](20)
	lower, middle, upper := bb.Compute(bbCh)
	mids := drain(middle)
	uppers := drain(upper)
	lowers := drain(lower)

	if len(fast) == 0 || len(slow) == 0 || len(mids) == 0 {
		return RegimeRanging
	}

	lastFast := fast[len(fast)-1]
	lastSlow := slow[len(slow)-1]
	lastMid := mids[len(mids)-1]
	lastUpper := uppers[len(uppers)-1]
	lastLower := lowers[len(lowers)-1]

	if lastMid != 0 {
		bandWidthPct := (lastUpper - lastLower) / lastMid
		if bandWidthPct > 0.1 {
			return RegimeVolatile
		}
	}

	switch {
	case lastFast > lastSlow:
		return RegimeTrendingUp
	case lastFast < lastSlow:
		return RegimeTrendingDown
	default:
		return RegimeRanging
	}
}

func toChannel(values []float64) <-chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func drain(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}
