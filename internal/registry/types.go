// Package registry persists strategy records and resolves a strategy ID to
// a runtime onBar implementation.
package registry

import "time"

// SchemaVersion is the current strategy-record schema version.
const SchemaVersion = "1.0"

// Level is a strategy's position in the promotion lifecycle.
type Level string

const (
	L0Incubate Level = "L0_INCUBATE"
	L1Backtest Level = "L1_BACKTEST"
	L2Paper    Level = "L2_PAPER"
	L3Live     Level = "L3_LIVE"
	Killed     Level = "KILLED"
)

// ParameterRange bounds a tunable parameter for optimization sweeps.
type ParameterRange struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Definition is the immutable bundle describing what a strategy trades and
// how it's parameterized. OnBar itself is not serialized: the registry
// stores only the schema, and a runtime implementation is bound by ID via
// Runtime.Register; Version plays no part in that lookup.
type Definition struct {
	ID              string                     `yaml:"id" json:"id"`
	Name            string                     `yaml:"name" json:"name"`
	Version         string                     `yaml:"version" json:"version"`
	Markets         []string                   `yaml:"markets" json:"markets"`
	Symbols         []string                   `yaml:"symbols" json:"symbols"`
	Timeframes      []string                   `yaml:"timeframes" json:"timeframes"`
	Parameters      map[string]float64         `yaml:"parameters" json:"parameters"`
	ParameterRanges map[string]ParameterRange  `yaml:"parameter_ranges,omitempty" json:"parameter_ranges,omitempty"`
}

// BacktestSummary is the condensed record of a backtest run attached to a
// Record, kept distinct from pkg/backtest.Result (which carries the
// full trade list and equity curve the registry doesn't need to persist).
type BacktestSummary struct {
	RanAt       time.Time `yaml:"ran_at" json:"ran_at"`
	Sharpe      float64   `yaml:"sharpe" json:"sharpe"`
	MaxDrawdown float64   `yaml:"max_drawdown" json:"max_drawdown"`
	TotalTrades int       `yaml:"total_trades" json:"total_trades"`
}

// WalkForwardSummary is the condensed record of a walk-forward run.
type WalkForwardSummary struct {
	RanAt    time.Time `yaml:"ran_at" json:"ran_at"`
	Passed   bool      `yaml:"passed" json:"passed"`
	Ratio    float64   `yaml:"ratio" json:"ratio"`
}

// Record is the registry's persisted entity: schema metadata plus the
// current lifecycle level and the most recent evaluation summaries.
type Record struct {
	SchemaVersion   string              `yaml:"schema_version" json:"schema_version"`
	ID              string              `yaml:"id" json:"id"`
	Name            string              `yaml:"name" json:"name"`
	Version         string              `yaml:"version" json:"version"`
	Level           Level               `yaml:"level" json:"level"`
	Definition      Definition          `yaml:"definition" json:"definition"`
	CreatedAt       time.Time           `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `yaml:"updated_at" json:"updated_at"`
	LastBacktest    *BacktestSummary    `yaml:"last_backtest,omitempty" json:"last_backtest,omitempty"`
	LastWalkForward *WalkForwardSummary `yaml:"last_walk_forward,omitempty" json:"last_walk_forward,omitempty"`
}
