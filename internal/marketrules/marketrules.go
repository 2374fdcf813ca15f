// Package marketrules supplies the per-market trading-session, lot-size,
// settlement, and price-limit registry that spec.md's design notes call out
// as "a separate registry in the source" the implementation must supply as
// a data file. It is a small static table here, easily swapped for an
// external file without touching any caller.
package marketrules

import "time"

// Rule describes one market's trading constraints.
type Rule struct {
	Market          string
	LotSize         float64
	SettlementDays  int     // T+N
	PriceLimitPct   float64 // daily band, e.g. 0.10 = +/-10%
	STPriceLimitPct float64 // band for ST/risk-flagged symbols
	SessionOpenUTC  int     // minutes after UTC midnight
	SessionCloseUTC int
}

var registry = map[string]Rule{
	"crypto": {
		Market:          "crypto",
		LotSize:         0.00000001,
		SettlementDays:  0,
		PriceLimitPct:   0,
		STPriceLimitPct: 0,
		SessionOpenUTC:  0,
		SessionCloseUTC: 24 * 60, // 24/7
	},
	"US": {
		Market:          "US",
		LotSize:         1,
		SettlementDays:  2,
		PriceLimitPct:   0,
		STPriceLimitPct: 0,
		SessionOpenUTC:  14*60 + 30,
		SessionCloseUTC: 21 * 60,
	},
	"SSE": { // Shanghai Stock Exchange, T+1, +/-10% (+/-5% ST)
		Market:          "SSE",
		LotSize:         100,
		SettlementDays:  1,
		PriceLimitPct:   0.10,
		STPriceLimitPct: 0.05,
		SessionOpenUTC:  1*60 + 30,
		SessionCloseUTC: 7 * 60,
	},
	"SZSE": {
		Market:          "SZSE",
		LotSize:         100,
		SettlementDays:  1,
		PriceLimitPct:   0.10,
		STPriceLimitPct: 0.05,
		SessionOpenUTC:  1*60 + 30,
		SessionCloseUTC: 7 * 60,
	},
}

// Lookup returns the rule for a market, and whether it is known.
func Lookup(market string) (Rule, bool) {
	r, ok := registry[market]
	return r, ok
}

// IsOpen reports whether market is in its trading session at t (UTC).
// Markets with a 24/7 session (crypto) ignore the weekday; every other
// market is additionally closed on Saturday/Sunday.
func IsOpen(market string, t time.Time) bool {
	rule, ok := registry[market]
	if !ok {
		return false
	}
	if rule.SessionCloseUTC-rule.SessionOpenUTC >= 24*60 {
		return true
	}
	weekday := t.UTC().Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}
	minutes := t.UTC().Hour()*60 + t.UTC().Minute()
	return minutes >= rule.SessionOpenUTC && minutes < rule.SessionCloseUTC
}

// ValidLotSize reports whether qty is a valid multiple of the market's lot increment.
func ValidLotSize(market string, qty float64) bool {
	rule, ok := registry[market]
	if !ok || rule.LotSize <= 0 {
		return true
	}
	ratio := qty / rule.LotSize
	rounded := float64(int64(ratio + 0.5))
	return absFloat(ratio-rounded) < 1e-9
}

// PriceLimitBand returns the [low, high] band allowed around prevClose for
// a market with daily limits; isST selects the tighter ST band.
func PriceLimitBand(market string, prevClose float64, isST bool) (low, high float64, limited bool) {
	rule, ok := registry[market]
	if !ok || rule.PriceLimitPct == 0 {
		return 0, 0, false
	}
	pct := rule.PriceLimitPct
	if isST {
		pct = rule.STPriceLimitPct
	}
	return prevClose * (1 - pct), prevClose * (1 + pct), true
}

// SettlementDays returns the T+N settlement days for a market.
func SettlementDays(market string) int {
	rule, ok := registry[market]
	if !ok {
		return 0
	}
	return rule.SettlementDays
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
