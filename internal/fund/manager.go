package fund

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/events"
)

// Manager is the fund manager's orchestration entry point.
type Manager struct {
	Config    AllocatorConfig
	Publisher *events.Publisher
	Store     *FundStateStore
}

// NewManager builds a Manager. pub may be nil. store may also be nil, in
// which case Rebalance computes a cycle without persisting fund state —
// useful for tests and dry runs that don't own a state file.
func NewManager(cfg AllocatorConfig, pub *events.Publisher, store *FundStateStore) *Manager {
	return &Manager{Config: cfg, Publisher: pub, Store: store}
}

// RebalanceResult is the full output of a rebalance cycle.
type RebalanceResult struct {
	Profiles        []*StrategyProfile
	Leaderboard     []*StrategyProfile
	Allocations     []Allocation
	Correlations    CorrelationMatrix
	HighCorrelation []CorrelatedPair
	Promotions      []TransitionCheck
	Demotions       []TransitionCheck
	Kills           []TransitionCheck
	State           FundState
}

// Rebalance performs the full fund-manager cycle: fuse records into
// profiles, rank the leaderboard, allocate capital, evaluate the
// promotion/demotion/kill lattice, and commit the resulting fund state.
// returns, if provided, feeds the correlation monitor. The cycle is atomic
// with respect to persistence: if m.Store is set, the new allocations and
// lastRebalanceAt either land on disk together or the prior state file is
// left untouched and err is non-nil.
func (m *Manager) Rebalance(records []*StrategyRecord, totalCapital float64, returns map[string][]float64) (RebalanceResult, error) {
	profiles := BuildProfiles(records)
	ranked := Leaderboard(profiles)

	var corrMatrix CorrelationMatrix
	var highCorr []CorrelatedPair
	if len(returns) > 0 {
		corrMatrix, highCorr = Correlation(returns)
	}

	allocations := Allocate(ranked, totalCapital, m.Config, corrMatrix)

	var promotions, demotions, kills []TransitionCheck
	for _, rec := range records {
		if rec.Level == Killed {
			continue
		}
		if kill := CheckKill(rec); kill.Eligible {
			kills = append(kills, kill)
			continue
		}
		if promo := CheckPromotion(rec); promo.Eligible {
			promotions = append(promotions, promo)
		}
		if demo := CheckDemotion(rec); demo.Eligible {
			demotions = append(demotions, demo)
		}
	}

	cashReservePct := m.Config.CashReservePct
	state := FundState{
		TotalCapital:    totalCapital,
		CashReserve:     totalCapital * cashReservePct / 100.0,
		Allocations:     allocations,
		LastRebalanceAt: time.Now(),
	}

	if m.Store != nil {
		committed, err := m.Store.Save(state)
		if err != nil {
			return RebalanceResult{}, fmt.Errorf("fund: persist state: %w", err)
		}
		state = committed
	}

	log.Info().
		Int("profiles", len(profiles)).
		Int("allocations", len(allocations)).
		Int("promotions", len(promotions)).
		Int("demotions", len(demotions)).
		Int("kills", len(kills)).
		Msg("rebalance cycle completed")

	m.Publisher.Publish(events.SubjectRebalanceCompleted, state)

	return RebalanceResult{
		Profiles:        profiles,
		Leaderboard:     ranked,
		Allocations:     allocations,
		Correlations:    corrMatrix,
		HighCorrelation: highCorr,
		Promotions:      promotions,
		Demotions:       demotions,
		Kills:           kills,
		State:           state,
	}, nil
}
