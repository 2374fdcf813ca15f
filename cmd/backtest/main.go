// Backtest runner CLI
// Runs a registered strategy against cached OHLCV data and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/config"
	"github.com/quantforge/fundcore/internal/db"
	"github.com/quantforge/fundcore/internal/exchange"
	"github.com/quantforge/fundcore/internal/indicators"
	"github.com/quantforge/fundcore/internal/ohlcv"
	"github.com/quantforge/fundcore/internal/registry"
	"github.com/quantforge/fundcore/pkg/backtest"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional, env vars take precedence)")

	strategyID = flag.String("strategy", "", "Strategy ID registered in the runtime (sma-cross, buy-and-hold)")
	symbol     = flag.String("symbol", "BTC/USDT", "Symbol to backtest")
	market     = flag.String("market", "crypto", "Market: crypto or equity")
	timeframe  = flag.String("timeframe", "1h", "Bar timeframe")

	startDate = flag.String("start", "", "Start date (YYYY-MM-DD), required")
	endDate   = flag.String("end", "", "End date (YYYY-MM-DD), required")

	initialCapital = flag.Float64("capital", 10000.0, "Initial capital")
	commissionRate = flag.Float64("commission", 0.001, "Commission rate (0.001 = 0.1%)")
	slippageBps    = flag.Float64("slippage-bps", 5.0, "Slippage in basis points")

	outputFile = flag.String("output", "", "Write the text report to this file too (optional)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if *strategyID == "" {
		fmt.Fprintln(os.Stderr, "Error: -strategy is required")
		fmt.Fprintln(os.Stderr, "\nBuilt-in strategies: sma-cross, buy-and-hold")
		flag.Usage()
		os.Exit(1)
	}
	if *startDate == "" || *endDate == "" {
		fmt.Fprintln(os.Stderr, "Error: -start and -end are required")
		flag.Usage()
		os.Exit(1)
	}

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -start date")
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -end date")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	if err := run(ctx, cfg, start, end); err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
}

func run(ctx context.Context, cfg *config.Config, start, end time.Time) error {
	database, err := db.New(ctx, cfg.Database, "")
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	cache := ohlcv.NewCache(database.Pool())
	adapter := ohlcv.NewCryptoAdapter(cache, newExchangeClient(cfg))

	bars, err := loadBars(ctx, adapter, start, end)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s/%s/%s in range %s..%s (neither the cache nor the exchange returned any)",
			*symbol, *market, *timeframe, *startDate, *endDate)
	}

	rt := registry.NewRuntime()
	registerBuiltinStrategies(rt)
	strategy, err := rt.Resolve(*strategyID)
	if err != nil {
		return err
	}

	runCfg := backtest.Config{
		Capital:        *initialCapital,
		CommissionRate: *commissionRate,
		SlippageBps:    *slippageBps,
		Market:         *market,
	}

	log.Info().
		Str("strategy", *strategyID).
		Str("symbol", *symbol).
		Int("bars", len(bars)).
		Float64("capital", *initialCapital).
		Msg("running backtest")

	result, err := backtest.Run(ctx, *strategyID, strategy, bars, runCfg)
	if err != nil {
		return fmt.Errorf("backtest run: %w", err)
	}

	report := backtest.GenerateReport(result)
	fmt.Println(report)

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(report), 0o600); err != nil {
			log.Warn().Err(err).Str("file", *outputFile).Msg("failed to write report file")
		} else {
			log.Info().Str("file", *outputFile).Msg("report written")
		}
	}
	return nil
}

// loadBars asks the read-through crypto adapter for every bar at or after
// start, backfilling from the exchange if the cache doesn't already have it,
// then trims the tail to end client-side (CryptoAdapter.Fetch has no upper
// bound, only since+limit).
func loadBars(ctx context.Context, adapter *ohlcv.CryptoAdapter, start, end time.Time) ([]backtest.Bar, error) {
	sinceMs := start.UnixMilli()
	untilMs := end.UnixMilli()

	rows, err := adapter.Fetch(ctx, *symbol, ohlcv.Timeframe(*timeframe), &sinceMs, 0)
	if err != nil {
		return nil, err
	}

	bars := make([]backtest.Bar, 0, len(rows))
	for _, r := range rows {
		if r.TimestampMs > untilMs {
			break
		}
		bars = append(bars, backtest.Bar{
			TimestampMs: r.TimestampMs,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
		})
	}
	return bars, nil
}

// newExchangeClient builds the live OHLCV source: a Binance klines client,
// optionally fronted by a Redis cache when cfg.Redis names a host.
func newExchangeClient(cfg *config.Config) ohlcv.ExchangeClient {
	binanceClient := exchange.NewBinanceClient(exchange.BinanceConfig{})

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return ohlcv.NewRedisExchangeCache(redisClient, 30*time.Second, binanceClient)
}

// registerBuiltinStrategies wires the two reference strategies shipped with
// the CLI. Production strategy packages register their own OnBar
// implementations against the same Runtime at process start.
func registerBuiltinStrategies(rt *registry.Runtime) {
	rt.Register("buy-and-hold", &buyAndHoldStrategy{})
	rt.Register("sma-cross", &smaCrossStrategy{fast: 10, slow: 30})
}

// buyAndHoldStrategy buys the full position on the first bar and never sells.
type buyAndHoldStrategy struct {
	bought bool
}

func (s *buyAndHoldStrategy) OnBar(bar backtest.Bar, ctx *backtest.Context) (*backtest.Signal, error) {
	if s.bought {
		return nil, nil
	}
	s.bought = true
	return &backtest.Signal{Action: backtest.ActionBuy, SizePct: 100, OrderType: backtest.OrderMarket, Reason: "buy-and-hold entry"}, nil
}

// smaCrossStrategy buys when the fast SMA crosses above the slow SMA and
// closes the position on a cross back below.
type smaCrossStrategy struct {
	fast, slow int
}

func (s *smaCrossStrategy) OnBar(bar backtest.Bar, ctx *backtest.Context) (*backtest.Signal, error) {
	if len(ctx.History) < s.slow+1 {
		return nil, nil
	}
	closes := closesOf(ctx.History)
	fastSMA := indicators.SMA(closes, s.fast)
	slowSMA := indicators.SMA(closes, s.slow)
	n := len(closes)
	curFast, curSlow := fastSMA[n-1], slowSMA[n-1]
	prevFast, prevSlow := fastSMA[n-2], slowSMA[n-2]
	if prevFast <= prevSlow && curFast > curSlow && ctx.Portfolio.Position == nil {
		return &backtest.Signal{Action: backtest.ActionBuy, SizePct: 100, OrderType: backtest.OrderMarket, Reason: "fast SMA crossed above slow"}, nil
	}
	if prevFast >= prevSlow && curFast < curSlow && ctx.Portfolio.Position != nil {
		return &backtest.Signal{Action: backtest.ActionClose, SizePct: 100, OrderType: backtest.OrderMarket, Reason: "fast SMA crossed below slow"}, nil
	}
	return nil, nil
}

func closesOf(bars []backtest.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
