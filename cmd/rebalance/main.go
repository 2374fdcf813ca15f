// Rebalance runner CLI
// Drives one fund-manager cycle: fuse strategy records and paper-trading
// evidence, rank and allocate capital, evaluate promotion/demotion/kill
// eligibility, and persist the resulting lifecycle transitions back to the
// strategy registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quantforge/fundcore/internal/config"
	"github.com/quantforge/fundcore/internal/db"
	"github.com/quantforge/fundcore/internal/events"
	"github.com/quantforge/fundcore/internal/fund"
	"github.com/quantforge/fundcore/internal/paper"
	"github.com/quantforge/fundcore/internal/registry"
)

var (
	configPath    = flag.String("config", "", "Path to config file (optional, env vars take precedence)")
	registryPath  = flag.String("registry", "strategies.json", "Path to the strategy registry file")
	fundStatePath = flag.String("fund-state", "fund-state.json", "Path to the persisted fund state file")
	dryRun        = flag.Bool("dry-run", false, "Evaluate the cycle without persisting lifecycle transitions")
	verbose       = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("rebalance cycle failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store := registry.NewStore(*registryPath)
	records, err := store.List()
	if err != nil {
		return fmt.Errorf("list registry: %w", err)
	}
	if len(records) == 0 {
		log.Warn().Str("registry", *registryPath).Msg("registry is empty, nothing to rebalance")
		return nil
	}

	database, err := db.New(ctx, cfg.Database, "")
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()
	paperStore := paper.NewPostgresStore(database.Pool())

	// Each record's paper-evidence lookup is an independent Postgres round
	// trip, so strategies are fused concurrently rather than one at a time —
	// the fan-out the fund-manager cycle needs across strategies.
	fundRecords := make([]*fund.StrategyRecord, len(records))
	recordReturns := make([][]float64, len(records))
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			fr := &fund.StrategyRecord{
				ID:              rec.ID,
				Name:            rec.Name,
				Level:           fund.Level(rec.Level),
				DaysSinceLaunch: int(now.Sub(rec.CreatedAt).Hours() / 24),
			}
			if rec.LastBacktest != nil {
				fr.LongTerm = fund.BacktestSummary{
					Sharpe:      rec.LastBacktest.Sharpe,
					MaxDrawdown: rec.LastBacktest.MaxDrawdown,
					TotalTrades: rec.LastBacktest.TotalTrades,
				}
			}
			if rec.LastWalkForward != nil {
				fr.WalkForward = &fund.WalkForwardSummary{Passed: rec.LastWalkForward.Passed}
			}

			if rec.Level == registry.L2Paper || rec.Level == registry.L3Live {
				summary, dailyReturns, paperErr := paperEvidence(gctx, paperStore, rec.ID)
				if paperErr != nil {
					log.Warn().Err(paperErr).Str("strategy", rec.ID).Msg("skipping paper evidence")
				} else if summary != nil {
					fr.Paper = summary
					fr.PaperDaysActive = summary.DaysActive
					recordReturns[i] = dailyReturns
				}
			}

			fundRecords[i] = fr
			return nil // a single strategy's paper-evidence failure is non-fatal to the cycle
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fuse strategy records: %w", err)
	}

	returns := map[string][]float64{}
	for i, rec := range records {
		if recordReturns[i] != nil {
			returns[rec.ID] = recordReturns[i]
		}
	}

	pub, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		log.Warn().Err(err).Msg("events publisher unavailable, continuing without it")
		pub = &events.Publisher{}
	}
	defer pub.Close()

	allocCfg := fund.AllocatorConfig{
		CashReservePct:       cfg.Fund.CashReservePct,
		MaxSingleStrategyPct: cfg.Fund.MaxSingleStrategyPct,
		MaxTotalExposurePct:  cfg.Fund.MaxTotalExposurePct,
	}
	var fundStore *fund.FundStateStore
	if !*dryRun {
		fundStore = fund.NewFundStateStore(*fundStatePath)
	}
	manager := fund.NewManager(allocCfg, pub, fundStore)
	result, err := manager.Rebalance(fundRecords, cfg.Fund.TotalCapital, returns)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	printReport(result)

	if *dryRun {
		log.Info().Msg("dry run: no registry transitions applied")
		return nil
	}
	return applyTransitions(store, result)
}

// paperEvidence fuses a strategy's paper account into a fund.PaperSummary.
// strategyID doubles as the paper account ID: a strategy's paper book is
// looked up under the strategy's own ID.
func paperEvidence(ctx context.Context, store *paper.PostgresStore, strategyID string) (*fund.PaperSummary, []float64, error) {
	acct, err := store.LoadAccount(ctx, strategyID)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := store.Snapshots(ctx, strategyID)
	if err != nil {
		return nil, nil, err
	}
	if len(snaps) == 0 {
		return nil, nil, nil
	}

	decay := paper.GetMetrics(snaps)
	daysActive := int(snaps[len(snaps)-1].Timestamp.Sub(snaps[0].Timestamp).Hours() / 24)

	filled := 0
	var cumulativeLoss float64
	for _, o := range acct.Orders {
		if o.Status == paper.StatusFilled {
			filled++
		}
	}
	if acct.InitialCapital > 0 {
		loss := acct.InitialCapital - acct.Equity()
		if loss > 0 {
			cumulativeLoss = loss / acct.InitialCapital
		}
	}

	summary := &fund.PaperSummary{
		Backtest:          fund.BacktestSummary{Sharpe: decay.RollingSharpe30d, MaxDrawdown: decay.CurrentDrawdownPct, TotalTrades: filled},
		RollingSharpe7d:   decay.RollingSharpe7d,
		RollingSharpe30d:  decay.RollingSharpe30d,
		CurrentDrawdown:   decay.CurrentDrawdownPct,
		ConsecutiveLosses: decay.ConsecutiveLossDays,
		DecayLevel:        fund.DecayLevel(decay.DecayLevel),
		DaysActive:        daysActive,
		TradeCount:        filled,
		CumulativeLossPct: cumulativeLoss,
	}

	returns := make([]float64, 0, len(snaps)-1)
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].Equity == 0 {
			continue
		}
		returns = append(returns, (snaps[i].Equity-snaps[i-1].Equity)/snaps[i-1].Equity)
	}
	return summary, returns, nil
}

func applyTransitions(store *registry.Store, result fund.RebalanceResult) error {
	for _, k := range result.Kills {
		if err := store.SetLevel(k.StrategyID, registry.Killed); err != nil {
			return fmt.Errorf("apply kill for %s: %w", k.StrategyID, err)
		}
		log.Info().Str("strategy", k.StrategyID).Msg("strategy killed")
	}
	for _, p := range result.Promotions {
		if err := store.SetLevel(p.StrategyID, registry.Level(p.To)); err != nil {
			return fmt.Errorf("apply promotion for %s: %w", p.StrategyID, err)
		}
		log.Info().Str("strategy", p.StrategyID).Str("to", string(p.To)).Msg("strategy promoted")
	}
	for _, d := range result.Demotions {
		if err := store.SetLevel(d.StrategyID, registry.Level(d.To)); err != nil {
			return fmt.Errorf("apply demotion for %s: %w", d.StrategyID, err)
		}
		log.Info().Str("strategy", d.StrategyID).Str("to", string(d.To)).Msg("strategy demoted")
	}
	return nil
}

func printReport(result fund.RebalanceResult) {
	fmt.Printf("\n=== Fund Rebalance: %d strategies, $%.2f total capital ===\n", len(result.Profiles), result.State.TotalCapital)
	fmt.Printf("Cash reserve: $%.2f\n\n", result.State.CashReserve)

	fmt.Println("Leaderboard:")
	for i, p := range result.Leaderboard {
		fmt.Printf("  %2d. %-20s fitness=%.3f score=%.3f level=%s\n", i+1, p.Record.ID, p.Fitness, p.LeaderboardScore, p.Record.Level)
	}

	fmt.Println("\nAllocations:")
	for _, a := range result.Allocations {
		fmt.Printf("  %-20s $%.2f (%.1f%%) — %s\n", a.StrategyID, a.CapitalUsd, a.WeightPct, a.Reason)
	}

	if len(result.HighCorrelation) > 0 {
		fmt.Println("\nHigh correlation pairs:")
		for _, c := range result.HighCorrelation {
			fmt.Printf("  %s <-> %s: %.2f\n", c.A, c.B, c.Correlation)
		}
	}

	for label, checks := range map[string][]fund.TransitionCheck{"Promotions": result.Promotions, "Demotions": result.Demotions, "Kills": result.Kills} {
		if len(checks) == 0 {
			continue
		}
		fmt.Printf("\n%s:\n", label)
		for _, c := range checks {
			fmt.Printf("  %-20s %s -> %s: %s\n", c.StrategyID, c.From, c.To, firstOr(c.Reasons, "eligible"))
		}
	}
	fmt.Println()
}

func firstOr(reasons []string, fallback string) string {
	if len(reasons) == 0 {
		return fallback
	}
	return reasons[0]
}
