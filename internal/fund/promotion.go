package fund

import "fmt"

// killCumulativeLossThreshold is the fraction of initial paper capital lost
// at which any strategy is killed regardless of level.
const killCumulativeLossThreshold = 0.40

// CheckPromotion evaluates whether rec is eligible to move to the next
// level. It only reports; applying the transition is the registry's job.
func CheckPromotion(rec *StrategyRecord) TransitionCheck {
	check := TransitionCheck{StrategyID: rec.ID, From: rec.Level}

	switch rec.Level {
	case L0Incubate:
		check.To = L1Backtest
		check.Eligible = true
		check.Reasons = append(check.Reasons, "definition validated, advancing to backtest stage")

	case L1Backtest:
		check.To = L2Paper
		var blockers []string
		if rec.WalkForward == nil || !rec.WalkForward.Passed {
			blockers = append(blockers, "walk-forward validation has not passed")
		}
		if rec.LongTerm.Sharpe < 1.0 {
			blockers = append(blockers, fmt.Sprintf("backtest sharpe %.2f below required 1.0", rec.LongTerm.Sharpe))
		}
		if absFloat(rec.LongTerm.MaxDrawdown) > 25 {
			blockers = append(blockers, fmt.Sprintf("backtest max drawdown %.2f%% exceeds 25%%", rec.LongTerm.MaxDrawdown))
		}
		if rec.LongTerm.TotalTrades < 100 {
			blockers = append(blockers, fmt.Sprintf("backtest trade count %d below required 100", rec.LongTerm.TotalTrades))
		}
		check.Blockers = blockers
		check.Eligible = len(blockers) == 0
		if check.Eligible {
			check.Reasons = append(check.Reasons, "backtest and walk-forward evidence clears L1->L2 bar")
		}

	case L2Paper:
		check.To = L3Live
		var blockers []string
		if rec.Paper == nil {
			blockers = append(blockers, "no paper-trading evidence recorded")
		} else {
			if rec.Paper.DaysActive < 30 {
				blockers = append(blockers, fmt.Sprintf("paper days active %d below required 30", rec.Paper.DaysActive))
			}
			if rec.Paper.TradeCount < 30 {
				blockers = append(blockers, fmt.Sprintf("paper trade count %d below required 30", rec.Paper.TradeCount))
			}
			if rec.Paper.RollingSharpe30d < 0.5 {
				blockers = append(blockers, fmt.Sprintf("rolling 30d sharpe %.2f below required 0.5", rec.Paper.RollingSharpe30d))
			}
			if absFloat(rec.Paper.CurrentDrawdown) > 20 {
				blockers = append(blockers, fmt.Sprintf("paper drawdown %.2f%% exceeds 20%%", rec.Paper.CurrentDrawdown))
			}
			if deviation := sharpeDeviation(rec.LongTerm.Sharpe, rec.Paper.Backtest.Sharpe); deviation > 0.30 {
				blockers = append(blockers, fmt.Sprintf("backtest/paper sharpe deviation %.0f%% exceeds 30%%", deviation*100))
			}
		}
		check.Blockers = blockers
		check.Eligible = len(blockers) == 0
		if check.Eligible {
			check.Reasons = append(check.Reasons, "paper-trading evidence clears L2->L3 bar")
		}

	case L3Live:
		check.To = L3Live
		check.Blockers = []string{"L3_LIVE has no further promotion target"}

	case Killed:
		check.To = Killed
		check.Blockers = []string{"KILLED is terminal"}
	}

	return check
}

// CheckDemotion evaluates whether rec should drop a level given its current
// decay signals.
func CheckDemotion(rec *StrategyRecord) TransitionCheck {
	check := TransitionCheck{StrategyID: rec.ID, From: rec.Level}

	switch rec.Level {
	case L3Live:
		check.To = L2Paper
		if rec.Paper == nil {
			return check
		}
		var reasons []string
		if rec.Paper.ConsecutiveLosses >= 3 {
			reasons = append(reasons, fmt.Sprintf("%d consecutive losing days", rec.Paper.ConsecutiveLosses))
		}
		if rec.Paper.RollingSharpe7d < 0 {
			reasons = append(reasons, fmt.Sprintf("rolling 7d sharpe %.2f is negative", rec.Paper.RollingSharpe7d))
		}
		if rec.Paper.DecayLevel == DecayCritical {
			reasons = append(reasons, "decay level is critical")
		}
		check.Eligible = len(reasons) > 0
		check.Reasons = reasons

	case L2Paper:
		check.To = L1Backtest
		if rec.Paper == nil {
			return check
		}
		var reasons []string
		if rec.Paper.RollingSharpe30d < -0.5 {
			reasons = append(reasons, fmt.Sprintf("rolling 30d sharpe %.2f below -0.5", rec.Paper.RollingSharpe30d))
		}
		if deviation := sharpeDeviation(rec.LongTerm.Sharpe, rec.Paper.Backtest.Sharpe); deviation > 0.50 {
			reasons = append(reasons, fmt.Sprintf("backtest/paper sharpe deviation %.0f%% exceeds 50%%", deviation*100))
		}
		check.Eligible = len(reasons) > 0
		check.Reasons = reasons

	default:
		check.To = rec.Level
	}

	return check
}

// CheckKill evaluates the cross-level kill switch: cumulative paper loss
// exceeding killCumulativeLossThreshold of initial paper capital.
func CheckKill(rec *StrategyRecord) TransitionCheck {
	check := TransitionCheck{StrategyID: rec.ID, From: rec.Level, To: Killed}

	if rec.Paper == nil || rec.Paper.CumulativeLossPct <= killCumulativeLossThreshold {
		return check
	}

	check.Eligible = true
	check.Reasons = []string{fmt.Sprintf("cumulative paper loss %.0f%% exceeds %.0f%% of initial capital",
		rec.Paper.CumulativeLossPct*100, killCumulativeLossThreshold*100)}
	return check
}

// sharpeDeviation returns |backtest - paper| / |backtest|, or 1 (maximal
// deviation) when backtest sharpe is zero and paper sharpe is not.
func sharpeDeviation(backtestSharpe, paperSharpe float64) float64 {
	if backtestSharpe == 0 {
		if paperSharpe == 0 {
			return 0
		}
		return 1
	}
	return absFloat(backtestSharpe-paperSharpe) / absFloat(backtestSharpe)
}
