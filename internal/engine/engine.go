// Package engine implements the time-stepped backtest loop: it merges
// multi-symbol bar streams by timestamp, drives the warmup and live phases,
// and coordinates the broker, portfolio, and strategy callbacks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MalteJ/paperhands/internal/analytics"
	"github.com/MalteJ/paperhands/internal/broker"
	"github.com/MalteJ/paperhands/internal/data"
	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
	"github.com/MalteJ/paperhands/internal/strategy"
)

// Config holds the per-run parameters of a backtest.
type Config struct {
	Symbols   []string
	Start     time.Time
	End       time.Time
	Timeframe string // bar timeframe label, e.g. "1Day"

	// Warmup is the leading span of bars fed to the strategy for indicator
	// priming before Start. Warmup bars never trade and never appear in
	// equity or trade history.
	Warmup time.Duration

	InitialCash        float64
	CommissionPerShare float64
	SlippagePercent    float64
}

// Engine replays historical bars through a strategy against the simulated
// broker and portfolio.
type Engine struct {
	cfg      Config
	strat    strategy.Strategy
	provider data.Provider

	portfolio *portfolio.Portfolio
	broker    *broker.Simulator
	sctx      *strategy.Context

	// barsByTime is the synchronization barrier: all symbols' bars for one
	// timestamp, keyed by timestamp then symbol.
	barsByTime map[time.Time]map[string]domain.Bar

	log *slog.Logger
}

// New creates an Engine for one backtest run. The portfolio and broker are
// owned by the engine and live for the duration of the run.
func New(cfg Config, strat strategy.Strategy, provider data.Provider) *Engine {
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1Day"
	}
	p := portfolio.New(cfg.InitialCash)
	b := broker.NewSimulator(p, cfg.CommissionPerShare, cfg.SlippagePercent)
	return &Engine{
		cfg:        cfg,
		strat:      strat,
		provider:   provider,
		portfolio:  p,
		broker:     b,
		sctx:       strategy.NewContext(b, p, provider),
		barsByTime: make(map[time.Time]map[string]domain.Bar),
		log:        slog.Default().With("component", "engine"),
	}
}

// Portfolio returns the engine's portfolio ledger.
func (e *Engine) Portfolio() *portfolio.Portfolio { return e.portfolio }

// Broker returns the engine's order-matching simulator.
func (e *Engine) Broker() *broker.Simulator { return e.broker }

// EquityCurve returns the recorded equity history of the run.
func (e *Engine) EquityCurve() []domain.EquityPoint { return e.portfolio.EquityHistory() }

// Trades returns the recorded trade log of the run.
func (e *Engine) Trades() []domain.TradeRecord { return e.portfolio.TradeHistory() }

// loadData fetches bars for all symbols over [start−warmup, end] and
// groups them by timestamp.
func (e *Engine) loadData(ctx context.Context) error {
	loadStart := e.cfg.Start.Add(-e.cfg.Warmup)

	barsBySymbol, err := e.provider.GetBarsMulti(ctx, e.cfg.Symbols, loadStart, e.cfg.End, e.cfg.Timeframe)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}

	for symbol, bars := range barsBySymbol {
		for _, bar := range bars {
			ts := bar.Timestamp
			if e.barsByTime[ts] == nil {
				e.barsByTime[ts] = make(map[string]domain.Bar)
			}
			e.barsByTime[ts][symbol] = bar
		}
	}

	e.log.Info("data loaded",
		"symbols", len(barsBySymbol),
		"timestamps", len(e.barsByTime),
	)
	return nil
}

// Run executes the backtest and returns the performance analytics. It
// fails fast when no bars were loaded for the requested range.
func (e *Engine) Run(ctx context.Context) (*analytics.Performance, error) {
	if err := e.loadData(ctx); err != nil {
		return nil, err
	}
	if len(e.barsByTime) == 0 {
		return nil, fmt.Errorf("no bars loaded for symbols %v in [%s, %s]",
			e.cfg.Symbols,
			e.cfg.Start.Add(-e.cfg.Warmup).Format("2006-01-02"),
			e.cfg.End.Format("2006-01-02"))
	}

	timestamps := make([]time.Time, 0, len(e.barsByTime))
	for ts := range e.barsByTime {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	// Partition into warmup (< start) and live (≥ start).
	live := sort.Search(len(timestamps), func(i int) bool {
		return !timestamps[i].Before(e.cfg.Start)
	})
	warmupTimestamps, liveTimestamps := timestamps[:live], timestamps[live:]

	if err := e.strat.OnStart(e.sctx); err != nil {
		return nil, fmt.Errorf("strategy on_start: %w", err)
	}

	if len(warmupTimestamps) > 0 {
		e.runWarmup(warmupTimestamps)
	}

	for _, ts := range liveTimestamps {
		if err := e.step(ts); err != nil {
			return nil, err
		}
	}

	if err := e.strat.OnStop(e.sctx); err != nil {
		return nil, fmt.Errorf("strategy on_stop: %w", err)
	}

	e.log.Info("run complete",
		"strategy", e.strat.Name(),
		"timestamps", len(liveTimestamps),
		"trades", len(e.portfolio.TradeHistory()),
		"final_value", e.portfolio.Value(),
	)

	return analytics.FromPortfolio(e.portfolio), nil
}

// runWarmup feeds warmup bars to the strategy's bar callback only: no
// price marking, no order processing, no equity sampling. Trading is
// disabled on the broker so strategy submissions are rejected rather than
// silently executed.
func (e *Engine) runWarmup(timestamps []time.Time) {
	e.broker.SetTradingEnabled(false)
	defer e.broker.SetTradingEnabled(true)

	for _, ts := range timestamps {
		e.sctx.SetCurrentTime(ts)
		for _, bar := range e.sortedBars(ts) {
			if err := e.strat.OnBar(e.sctx, bar); err != nil {
				e.log.Warn("strategy on_bar during warmup", "err", err)
			}
		}
	}
	e.log.Debug("warmup complete", "timestamps", len(timestamps))
}

// step processes one live timestamp:
//
//  1. mark all positions to this timestamp's closes and record one equity
//     sample;
//  2. per symbol in lexicographic order, let the broker match open orders
//     against the bar, then deliver the bar to the strategy; fills become
//     visible to the strategy from the next callback on, never
//     retroactively;
//  3. drain the accumulated fill events and dispatch them FIFO.
func (e *Engine) step(ts time.Time) error {
	e.sctx.SetCurrentTime(ts)
	bars := e.sortedBars(ts)

	prices := make(map[string]float64, len(bars))
	for _, bar := range bars {
		prices[bar.Symbol] = bar.Close
	}
	e.portfolio.UpdatePositionPrices(prices, ts)

	for _, bar := range bars {
		e.broker.ProcessBar(bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, ts)
		if err := e.strat.OnBar(e.sctx, bar); err != nil {
			return fmt.Errorf("strategy on_bar at %s: %w", ts.Format(time.RFC3339), err)
		}
	}

	for _, fill := range e.broker.FillEvents() {
		if err := e.strat.OnFill(e.sctx, fill); err != nil {
			return fmt.Errorf("strategy on_fill at %s: %w", ts.Format(time.RFC3339), err)
		}
	}
	return nil
}

// sortedBars returns the bars present at ts in lexicographic symbol order.
// The fixed ordering makes runs reproducible; symbols absent at ts are
// simply skipped.
func (e *Engine) sortedBars(ts time.Time) []domain.Bar {
	group := e.barsByTime[ts]
	symbols := make([]string, 0, len(group))
	for symbol := range group {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	bars := make([]domain.Bar, 0, len(symbols))
	for _, symbol := range symbols {
		bars = append(bars, group[symbol])
	}
	return bars
}
