// Package store defines storage interfaces for persisting and retrieving
// bar data and backtest results, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"github.com/MalteJ/paperhands/internal/analytics"
	"github.com/MalteJ/paperhands/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given timeframe label.
	WriteBars(ctx context.Context, bars []domain.Bar, timeframe string) error

	// ReadBars returns bars for the symbol and timeframe within [start, end].
	ReadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols cached for the timeframe.
	ListSymbols(ctx context.Context, timeframe string) ([]string, error)
}

// RunRecord is one persisted backtest run with its summary metrics.
type RunRecord struct {
	ID          int64
	Strategy    string
	Symbols     []string
	Start       time.Time
	End         time.Time
	InitialCash float64
	FinalValue  float64
	Metrics     analytics.Metrics
	CreatedAt   time.Time
}

// ResultStore persists finished backtest runs: the summary record plus the
// full trade log and equity curve.
type ResultStore interface {
	// SaveRun inserts a run with its trade log and equity curve, returning
	// the assigned run ID.
	SaveRun(ctx context.Context, run *RunRecord, trades []domain.TradeRecord, equity []domain.EquityPoint) (int64, error)

	// GetRun retrieves a run summary by ID.
	GetRun(ctx context.Context, id int64) (*RunRecord, error)

	// ListRuns returns all run summaries, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// GetTrades returns the trade log for a run in insertion order.
	GetTrades(ctx context.Context, runID int64) ([]domain.TradeRecord, error)

	// GetEquity returns the equity curve for a run in timestamp order.
	GetEquity(ctx context.Context, runID int64) ([]domain.EquityPoint, error)
}
