package backtest

import (
	"fmt"
	"time"
)

// GenerateReport renders a human-readable performance summary for a Result.
// The core itself never prints; this is a convenience the host may ignore.
func GenerateReport(result *Result) string {
	start := time.UnixMilli(result.StartMs).UTC()
	end := time.UnixMilli(result.EndMs).UTC()

	return fmt.Sprintf(`
================================================================================
BACKTEST REPORT — %s
================================================================================
Period:           %s to %s
Initial Capital:  $%.2f
Final Equity:     $%.2f
Total Return:     %.2f%%

RISK
----
Max Drawdown:     %.2f%%
Sharpe:           %.3f
Sortino:          %.3f
Calmar:           %.3f

TRADES
------
Total Trades:     %d
Win Rate:         %.2f%%
Profit Factor:    %.3f
================================================================================
`,
		result.StrategyID,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		result.InitialCapital,
		result.FinalEquity,
		result.TotalReturnPct,
		result.MaxDrawdownPct,
		result.Sharpe,
		result.Sortino,
		result.Calmar,
		result.TotalTrades,
		result.WinRatePct,
		result.ProfitFactor,
	)
}
