package fund

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFundRecords() []*StrategyRecord {
	return []*StrategyRecord{
		{
			ID:       "s1",
			Level:    L2Paper,
			LongTerm: BacktestSummary{Sharpe: 1.5, TotalTrades: 100},
			Paper: &PaperSummary{
				Backtest:         BacktestSummary{Sharpe: 1.5},
				RollingSharpe30d: 1.2,
			},
		},
	}
}

func TestRebalanceWithoutStoreDoesNotPersist(t *testing.T) {
	cfg := AllocatorConfig{CashReservePct: 30, MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}
	manager := NewManager(cfg, nil, nil)

	result, err := manager.Rebalance(sampleFundRecords(), 100000, nil)
	require.NoError(t, err)
	assert.False(t, result.State.LastRebalanceAt.IsZero())
	assert.True(t, result.State.CreatedAt.IsZero(), "CreatedAt is only stamped when a store commits the state")
}

func TestRebalancePersistsStateAndStampsTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-state.json")
	cfg := AllocatorConfig{CashReservePct: 30, MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}
	manager := NewManager(cfg, nil, NewFundStateStore(path))

	result, err := manager.Rebalance(sampleFundRecords(), 100000, nil)
	require.NoError(t, err)
	assert.False(t, result.State.CreatedAt.IsZero())
	assert.False(t, result.State.UpdatedAt.IsZero())

	loaded, err := NewFundStateStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, result.State.TotalCapital, loaded.TotalCapital)
	assert.Equal(t, result.State.LastRebalanceAt.Unix(), loaded.LastRebalanceAt.Unix())
}

func TestRebalanceSecondCycleKeepsOriginalCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-state.json")
	cfg := AllocatorConfig{CashReservePct: 30, MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}
	manager := NewManager(cfg, nil, NewFundStateStore(path))

	first, err := manager.Rebalance(sampleFundRecords(), 100000, nil)
	require.NoError(t, err)

	second, err := manager.Rebalance(sampleFundRecords(), 120000, nil)
	require.NoError(t, err)

	assert.Equal(t, first.State.CreatedAt, second.State.CreatedAt)
	assert.Equal(t, 120000.0, second.State.TotalCapital)
}

func TestRebalanceFailsAtomicallyWhenStateFileUnwritable(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "state-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0600))

	cfg := AllocatorConfig{CashReservePct: 30, MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}
	manager := NewManager(cfg, nil, NewFundStateStore(filepath.Join(blocker, "fund-state.json")))

	_, err := manager.Rebalance(sampleFundRecords(), 100000, nil)
	assert.Error(t, err)
}
