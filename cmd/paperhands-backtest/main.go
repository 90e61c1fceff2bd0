package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MalteJ/paperhands/internal/analytics"
	"github.com/MalteJ/paperhands/internal/config"
	"github.com/MalteJ/paperhands/internal/data"
	"github.com/MalteJ/paperhands/internal/engine"
	"github.com/MalteJ/paperhands/internal/export"
	"github.com/MalteJ/paperhands/internal/store"
	"github.com/MalteJ/paperhands/internal/strategy"
	"github.com/MalteJ/paperhands/internal/strategy/builtins"
	"github.com/MalteJ/paperhands/internal/util"
)

func main() {
	smaShort := flag.Int("sma-short", 20, "short SMA period for the sma-cross strategy")
	smaLong := flag.Int("sma-long", 50, "long SMA period for the sma-cross strategy")
	qty := flag.Int("qty", 100, "shares per entry for the sma-cross strategy")
	save := flag.Bool("save", false, "persist the run to the results database")
	exportDir := flag.String("export-dir", "", "write equity.csv and trades.csv to this directory")
	listStrategies := flag.Bool("list-strategies", false, "print registered strategies and exit")
	flag.Parse()

	cfgPath := "config/paperhands.yaml"
	if p := os.Getenv("PAPERHANDS_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(*smaShort, *smaLong, *qty))

	if *listStrategies {
		for _, name := range registry.List() {
			fmt.Println(name)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	strat, ok := registry.Get(cfg.Backtest.Strategy)
	if !ok {
		log.Fatalf("unknown strategy %q (known: %v)", cfg.Backtest.Strategy, registry.List())
	}

	start, _ := cfg.Backtest.StartTime()
	end, _ := cfg.Backtest.EndTime()

	var provider data.Provider = data.NewAlpacaProvider(
		cfg.Data.APIKey,
		cfg.Data.APISecret,
		cfg.Data.DataURL,
		cfg.Data.Feed,
		cfg.Data.RateLimitPerMin,
	)
	if cfg.Storage.DataDir != "" {
		provider = data.NewCachedProvider(provider, store.NewParquetStore(cfg.Storage.DataDir))
	}

	eng := engine.New(engine.Config{
		Symbols:            cfg.Backtest.Symbols,
		Start:              start,
		End:                end,
		Timeframe:          cfg.Backtest.Timeframe,
		Warmup:             cfg.Backtest.Warmup(),
		InitialCash:        cfg.Backtest.InitialCash,
		CommissionPerShare: cfg.Backtest.CommissionPerShare,
		SlippagePercent:    cfg.Backtest.SlippagePercent,
	}, strat, provider)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting backtest",
		"strategy", strat.Name(),
		"symbols", cfg.Backtest.Symbols,
		"start", cfg.Backtest.StartDate,
		"end", cfg.Backtest.EndDate,
	)

	perf, err := eng.Run(ctx)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Println(perf.Report())

	if *save {
		if err := saveRun(ctx, cfg, strat.Name(), start, end, eng, perf); err != nil {
			log.Fatalf("saving run: %v", err)
		}
	}

	if *exportDir != "" {
		if err := exportRun(*exportDir, eng); err != nil {
			log.Fatalf("exporting run: %v", err)
		}
	}
}

func saveRun(ctx context.Context, cfg *config.Config, stratName string, start, end time.Time, eng *engine.Engine, perf *analytics.Performance) error {
	if cfg.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is not configured")
	}
	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer s.Close()

	run := &store.RunRecord{
		Strategy:    stratName,
		Symbols:     cfg.Backtest.Symbols,
		Start:       start,
		End:         end,
		InitialCash: cfg.Backtest.InitialCash,
		FinalValue:  eng.Portfolio().Value(),
		Metrics:     perf.Calculate(),
	}
	id, err := s.SaveRun(ctx, run, eng.Trades(), eng.EquityCurve())
	if err != nil {
		return err
	}
	slog.Info("run saved", "id", id, "db", cfg.Storage.SQLitePath)
	return nil
}

func exportRun(dir string, eng *engine.Engine) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	equityPath := filepath.Join(dir, "equity.csv")
	if err := export.WriteEquityFile(equityPath, eng.EquityCurve()); err != nil {
		return err
	}
	tradesPath := filepath.Join(dir, "trades.csv")
	if err := export.WriteTradesFile(tradesPath, eng.Trades()); err != nil {
		return err
	}
	slog.Info("run exported", "equity", equityPath, "trades", tradesPath)
	return nil
}
