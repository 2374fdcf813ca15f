package fund

import (
	"sort"

	"github.com/rs/zerolog/log"
)

const (
	l2PaperCapPct  = 15.0
	newLiveCapPct  = 10.0
	newLiveDays    = 30
	correlationCap = 40.0
	rawKellyScale  = 0.5
)

// Allocate distributes totalCapital across profiles using a half-Kelly
// rule, grounded on the platform's existing Kelly-fraction sizing approach
// but generalised across the whole eligible strategy pool rather than a
// single position. corr may be nil to skip the correlation cap.
func Allocate(profiles []*StrategyProfile, totalCapital float64, cfg AllocatorConfig, corr CorrelationMatrix) []Allocation {
	eligible := make([]*StrategyProfile, 0, len(profiles))
	for _, p := range profiles {
		if (p.Record.Level == L2Paper || p.Record.Level == L3Live) && p.Fitness > 0 {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	maxFitness := 0.0
	for _, p := range eligible {
		if p.Fitness > maxFitness {
			maxFitness = p.Fitness
		}
	}

	weights := make(map[string]float64, len(eligible))
	for _, p := range eligible {
		raw := (p.Fitness / maxFitness) * rawKellyScale
		weights[p.Record.ID] = applyLevelCap(raw, p.Record, cfg)
	}

	applyCorrelationCap(weights, eligible, corr)
	applyTotalExposureCap(weights, cfg.MaxTotalExposurePct)

	allocations := make([]Allocation, 0, len(eligible))
	for _, p := range eligible {
		w := weights[p.Record.ID]
		allocations = append(allocations, Allocation{
			StrategyID: p.Record.ID,
			CapitalUsd: w / 100.0 * totalCapital,
			WeightPct:  w,
			Reason:     allocationReason(p.Record),
		})
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].WeightPct > allocations[j].WeightPct
	})

	log.Info().Int("strategies", len(allocations)).Float64("total_capital", totalCapital).Msg("capital allocation computed")

	return allocations
}

func applyLevelCap(rawWeightFraction float64, rec *StrategyRecord, cfg AllocatorConfig) float64 {
	weightPct := rawWeightFraction * 100.0

	var cap float64
	switch {
	case rec.Level == L2Paper:
		cap = l2PaperCapPct
	case rec.Level == L3Live && rec.PaperDaysActive < newLiveDays:
		cap = newLiveCapPct
	default:
		cap = cfg.MaxSingleStrategyPct
	}

	if weightPct > cap {
		return cap
	}
	return weightPct
}

// applyCorrelationCap scales down, proportionally, any pair whose combined
// weight exceeds correlationCap while their |correlation| is >= threshold.
func applyCorrelationCap(weights map[string]float64, profiles []*StrategyProfile, corr CorrelationMatrix) {
	if corr == nil {
		return
	}
	for i, a := range profiles {
		for j := i + 1; j < len(profiles); j++ {
			b := profiles[j]
			row, ok := corr[a.Record.ID]
			if !ok {
				continue
			}
			rho, ok := row[b.Record.ID]
			if !ok || absFloat(rho) < highCorrelationThreshold {
				continue
			}

			combined := weights[a.Record.ID] + weights[b.Record.ID]
			if combined <= correlationCap || combined == 0 {
				continue
			}
			scale := correlationCap / combined
			weights[a.Record.ID] *= scale
			weights[b.Record.ID] *= scale
		}
	}
}

func applyTotalExposureCap(weights map[string]float64, maxTotalExposurePct float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= maxTotalExposurePct || total == 0 {
		return
	}
	scale := maxTotalExposurePct / total
	for id := range weights {
		weights[id] *= scale
	}
}

func allocationReason(rec *StrategyRecord) string {
	switch rec.Level {
	case L3Live:
		if rec.PaperDaysActive < newLiveDays {
			return "new L3_LIVE strategy, capped allocation pending track record"
		}
		return "mature L3_LIVE strategy"
	case L2Paper:
		return "L2_PAPER strategy, capped allocation pending live promotion"
	default:
		return "ineligible for allocation"
	}
}
