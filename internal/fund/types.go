// Package fund implements the fund manager: fitness scoring, leaderboard
// ranking, half-Kelly capital allocation, risk evaluation, and the
// promotion/demotion checks that drive the strategy registry's lifecycle.
package fund

import "time"

// Level mirrors the registry's strategy lifecycle stage.
type Level string

const (
	L0Incubate Level = "L0_INCUBATE"
	L1Backtest Level = "L1_BACKTEST"
	L2Paper    Level = "L2_PAPER"
	L3Live     Level = "L3_LIVE"
	Killed     Level = "KILLED"
)

// DecayLevel mirrors the paper engine's decay classification.
type DecayLevel string

const (
	DecayHealthy   DecayLevel = "healthy"
	DecayWarning   DecayLevel = "warning"
	DecayDegrading DecayLevel = "degrading"
	DecayCritical  DecayLevel = "critical"
)

// RiskLevel is the fund-wide daily drawdown classification.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "normal"
	RiskCaution  RiskLevel = "caution"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// BacktestSummary is the subset of a backtest result the fund manager reads.
type BacktestSummary struct {
	Sharpe      float64
	MaxDrawdown float64 // percent, negative or zero
	TotalTrades int
}

// WalkForwardSummary is the subset of a walk-forward result the fund manager reads.
type WalkForwardSummary struct {
	Passed bool
}

// PaperSummary fuses paper-trading evidence for a single strategy.
type PaperSummary struct {
	Backtest          BacktestSummary // paper-trading performance, expressed in the same shape as a backtest summary
	RollingSharpe7d   float64
	RollingSharpe30d  float64
	CurrentDrawdown   float64 // percent, negative or zero
	ConsecutiveLosses int
	DecayLevel        DecayLevel
	DaysActive        int
	TradeCount        int
	CumulativeLossPct float64 // positive fraction of initial paper capital lost
}

// StrategyRecord is the registry-owned entity the fund manager borrows a
// reference to during a rebalance cycle.
type StrategyRecord struct {
	ID              string
	Name            string
	Level           Level
	DaysSinceLaunch int
	LongTerm        BacktestSummary
	Recent          *BacktestSummary
	WalkForward     *WalkForwardSummary
	Paper           *PaperSummary
	PaperDaysActive int
}

// StrategyProfile fuses a record, its paper data, and its fitness score.
// Profiles for KILLED records are excluded from downstream computation.
type StrategyProfile struct {
	Record           *StrategyRecord
	Fitness          float64
	LeaderboardScore float64
}

// Allocation is one strategy's share of the fund's capital pool.
type Allocation struct {
	StrategyID string  `json:"strategyId"`
	CapitalUsd float64 `json:"capitalUsd"`
	WeightPct  float64 `json:"weightPct"`
	Reason     string  `json:"reason"`
}

// FundState is the fund manager's persisted state (spec §6): a JSON document
// committed atomically to disk after every rebalance.
type FundState struct {
	TotalCapital    float64      `json:"totalCapital"`
	CashReserve     float64      `json:"cashReserve"`
	Allocations     []Allocation `json:"allocations"`
	LastRebalanceAt time.Time    `json:"lastRebalanceAt"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// AllocatorConfig mirrors spec.md §6's fund allocator settings.
type AllocatorConfig struct {
	CashReservePct       float64
	MaxSingleStrategyPct float64
	MaxTotalExposurePct  float64
}

// RiskAssessment is the result of a daily risk evaluation.
type RiskAssessment struct {
	Level         RiskLevel
	DailyDrawdown float64 // percent, non-negative
	ScaleFactor   float64
	TodayPnl      float64
	TodayPnlPct   float64
}

// TransitionCheck is the result of a promotion or demotion evaluation. The
// fund manager only reports; applying the transition is the registry's job.
type TransitionCheck struct {
	StrategyID string
	From       Level
	To         Level
	Eligible   bool
	Reasons    []string
	Blockers   []string
}
