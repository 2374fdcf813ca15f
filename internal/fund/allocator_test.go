package fund

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateExcludesIneligibleLevels(t *testing.T) {
	profiles := []*StrategyProfile{
		{Record: &StrategyRecord{ID: "incubating", Level: L0Incubate}, Fitness: 5.0},
		{Record: &StrategyRecord{ID: "paper", Level: L2Paper}, Fitness: 1.0},
	}
	cfg := AllocatorConfig{MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}

	allocations := Allocate(profiles, 100000, cfg, nil)
	require.Len(t, allocations, 1)
	assert.Equal(t, "paper", allocations[0].StrategyID)
}

func TestAllocateAppliesLevelCaps(t *testing.T) {
	profiles := []*StrategyProfile{
		{Record: &StrategyRecord{ID: "paper", Level: L2Paper}, Fitness: 10.0},
	}
	cfg := AllocatorConfig{MaxSingleStrategyPct: 30, MaxTotalExposurePct: 70}

	allocations := Allocate(profiles, 100000, cfg, nil)
	require.Len(t, allocations, 1)
	assert.LessOrEqual(t, allocations[0].WeightPct, l2PaperCapPct)
}

func TestAllocateTotalExposureCap(t *testing.T) {
	profiles := []*StrategyProfile{
		{Record: &StrategyRecord{ID: "a", Level: L3Live, PaperDaysActive: 100}, Fitness: 10.0},
		{Record: &StrategyRecord{ID: "b", Level: L3Live, PaperDaysActive: 100}, Fitness: 10.0},
		{Record: &StrategyRecord{ID: "c", Level: L3Live, PaperDaysActive: 100}, Fitness: 9.0},
	}
	cfg := AllocatorConfig{MaxSingleStrategyPct: 30, MaxTotalExposurePct: 40}

	allocations := Allocate(profiles, 100000, cfg, nil)
	total := 0.0
	for _, a := range allocations {
		total += a.WeightPct
	}
	assert.LessOrEqual(t, total, cfg.MaxTotalExposurePct+1e-6)
}

func TestAllocateCorrelationCap(t *testing.T) {
	profiles := []*StrategyProfile{
		{Record: &StrategyRecord{ID: "a", Level: L3Live, PaperDaysActive: 100}, Fitness: 10.0},
		{Record: &StrategyRecord{ID: "b", Level: L3Live, PaperDaysActive: 100}, Fitness: 10.0},
	}
	cfg := AllocatorConfig{MaxSingleStrategyPct: 30, MaxTotalExposurePct: 100}
	corr := CorrelationMatrix{
		"a": {"b": 0.9},
		"b": {"a": 0.9},
	}

	allocations := Allocate(profiles, 100000, cfg, corr)
	var combined float64
	for _, a := range allocations {
		combined += a.WeightPct
	}
	assert.LessOrEqual(t, combined, correlationCap+1e-6)
}
