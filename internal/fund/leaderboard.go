package fund

import "sort"

// confidenceMultiplier returns the leaderboard confidence weighting for rec's
// level, boosted when the strategy's most recent walk-forward passed.
func confidenceMultiplier(rec *StrategyRecord) float64 {
	passed := rec.WalkForward != nil && rec.WalkForward.Passed

	switch rec.Level {
	case L0Incubate:
		return 0.3
	case L1Backtest:
		m := 0.6
		if passed {
			m += 0.1
		}
		return m
	case L2Paper:
		return 0.9
	case L3Live:
		m := 1.0
		if passed {
			m += 0.1
		}
		return m
	default:
		return 0
	}
}

// BuildProfiles fuses fitness and leaderboard scores for every non-killed
// record in records.
func BuildProfiles(records []*StrategyRecord) []*StrategyProfile {
	profiles := make([]*StrategyProfile, 0, len(records))
	for _, rec := range records {
		if rec.Level == Killed {
			continue
		}
		fitness := Fitness(rec)
		profiles = append(profiles, &StrategyProfile{
			Record:           rec,
			Fitness:          fitness,
			LeaderboardScore: fitness * confidenceMultiplier(rec),
		})
	}
	return profiles
}

// Leaderboard ranks profiles by leaderboardScore descending. Ties break by
// higher Sharpe, then lower |maxDrawdown|, then lower id lexicographically.
func Leaderboard(profiles []*StrategyProfile) []*StrategyProfile {
	ranked := make([]*StrategyProfile, len(profiles))
	copy(ranked, profiles)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.LeaderboardScore != b.LeaderboardScore {
			return a.LeaderboardScore > b.LeaderboardScore
		}
		if a.Record.LongTerm.Sharpe != b.Record.LongTerm.Sharpe {
			return a.Record.LongTerm.Sharpe > b.Record.LongTerm.Sharpe
		}
		aDD, bDD := absFloat(a.Record.LongTerm.MaxDrawdown), absFloat(b.Record.LongTerm.MaxDrawdown)
		if aDD != bDD {
			return aDD < bDD
		}
		return a.Record.ID < b.Record.ID
	})

	return ranked
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
