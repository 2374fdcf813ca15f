package fund

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundStateStoreLoadMissingFileReturnsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-state.json")
	store := NewFundStateStore(path)

	state, err := store.Load()
	require.NoError(t, err)
	assert.True(t, state.CreatedAt.IsZero())
	assert.Nil(t, state.Allocations)
}

func TestFundStateStoreSaveStampsCreatedAtOnceAndUpdatedAtEveryTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-state.json")
	store := NewFundStateStore(path)

	first, err := store.Save(FundState{TotalCapital: 100000, LastRebalanceAt: time.Now()})
	require.NoError(t, err)
	require.False(t, first.CreatedAt.IsZero())
	firstCreated := first.CreatedAt

	second, err := store.Save(FundState{TotalCapital: 120000, LastRebalanceAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, firstCreated, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))
}

func TestFundStateStoreSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-state.json")
	store := NewFundStateStore(path)

	state := FundState{
		TotalCapital:    100000,
		CashReserve:     30000,
		Allocations:     []Allocation{{StrategyID: "s1", CapitalUsd: 10000, WeightPct: 10, Reason: "leaderboard rank 1"}},
		LastRebalanceAt: time.Now(),
	}
	_, err := store.Save(state)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.TotalCapital, loaded.TotalCapital)
	assert.Equal(t, state.CashReserve, loaded.CashReserve)
	require.Len(t, loaded.Allocations, 1)
	assert.Equal(t, "s1", loaded.Allocations[0].StrategyID)
}

func TestFundStateStoreSaveLeavesFileUntouchedOnDirectoryCollision(t *testing.T) {
	// A file already occupies the parent path segment, so Save fails
	// (reading the existing state through that file already errors) without
	// writing anything to the (nonexistent) target path.
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "state-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0600))

	path := filepath.Join(blocker, "fund-state.json")
	store := NewFundStateStore(path)

	_, err := store.Save(FundState{TotalCapital: 100000})
	assert.Error(t, err)
}
