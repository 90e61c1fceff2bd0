package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database. Each run
// keeps its summary metrics plus the full trade log and equity curve, so
// persisted runs can be re-analyzed without replaying.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy      TEXT NOT NULL,
	symbols       TEXT NOT NULL,
	start_date    INTEGER NOT NULL,
	end_date      INTEGER NOT NULL,
	initial_cash  REAL NOT NULL,
	final_value   REAL NOT NULL,
	total_return  REAL NOT NULL,
	total_return_percent REAL NOT NULL,
	sharpe_ratio  REAL NOT NULL,
	sortino_ratio REAL NOT NULL,
	max_drawdown  REAL NOT NULL,
	max_drawdown_duration INTEGER NOT NULL,
	win_rate      REAL NOT NULL,
	profit_factor REAL NOT NULL,
	total_trades  INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	timestamp  INTEGER NOT NULL,
	symbol     TEXT NOT NULL,
	side       TEXT NOT NULL,
	qty        INTEGER NOT NULL,
	price      REAL NOT NULL,
	commission REAL NOT NULL,
	cash_after REAL NOT NULL,
	portfolio_value_after REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id    INTEGER NOT NULL REFERENCES runs(id),
	timestamp INTEGER NOT NULL,
	value     REAL NOT NULL,
	PRIMARY KEY (run_id, timestamp)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies
// the schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run summary, trade log, and equity curve in one
// transaction and returns the assigned run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord, trades []domain.TradeRecord, equity []domain.EquityPoint) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			strategy, symbols, start_date, end_date, initial_cash, final_value,
			total_return, total_return_percent, sharpe_ratio, sortino_ratio,
			max_drawdown, max_drawdown_duration, win_rate, profit_factor,
			total_trades, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Strategy,
		strings.Join(run.Symbols, ","),
		run.Start.UnixMilli(),
		run.End.UnixMilli(),
		run.InitialCash,
		run.FinalValue,
		run.Metrics.TotalReturn,
		run.Metrics.TotalReturnPercent,
		run.Metrics.SharpeRatio,
		run.Metrics.SortinoRatio,
		run.Metrics.MaxDrawdown,
		run.Metrics.MaxDrawdownDuration,
		run.Metrics.WinRate,
		run.Metrics.ProfitFactor,
		run.Metrics.TotalTrades,
		createdAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, tr := range trades {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trades (
				run_id, seq, timestamp, symbol, side, qty, price, commission,
				cash_after, portfolio_value_after
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, tr.Timestamp.UnixMilli(), tr.Symbol, string(tr.Side),
			tr.Qty, tr.Price, tr.Commission, tr.CashAfter, tr.PortfolioValueAfter,
		); err != nil {
			return 0, fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for _, pt := range equity {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO equity (run_id, timestamp, value) VALUES (?, ?, ?)`,
			runID, pt.Timestamp.UnixMilli(), pt.Value,
		); err != nil {
			return 0, fmt.Errorf("inserting equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// GetRun retrieves a run summary by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, symbols, start_date, end_date, initial_cash,
			final_value, total_return, total_return_percent, sharpe_ratio,
			sortino_ratio, max_drawdown, max_drawdown_duration, win_rate,
			profit_factor, total_trades, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("reading run %d: %w", id, err)
	}
	return run, nil
}

// ListRuns returns all run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, symbols, start_date, end_date, initial_cash,
			final_value, total_return, total_return_percent, sharpe_ratio,
			sortino_ratio, max_drawdown, max_drawdown_duration, win_rate,
			profit_factor, total_trades, created_at
		FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetTrades returns the trade log for a run in insertion order.
func (s *SQLiteStore) GetTrades(ctx context.Context, runID int64) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, side, qty, price, commission, cash_after,
			portfolio_value_after
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing trades for run %d: %w", runID, err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var tr domain.TradeRecord
		var ts int64
		var side string
		if err := rows.Scan(&ts, &tr.Symbol, &side, &tr.Qty, &tr.Price,
			&tr.Commission, &tr.CashAfter, &tr.PortfolioValueAfter); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		tr.Timestamp = time.UnixMilli(ts).UTC()
		tr.Side = domain.OrderSide(side)
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// GetEquity returns the equity curve for a run in timestamp order.
func (s *SQLiteStore) GetEquity(ctx context.Context, runID int64) ([]domain.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, value FROM equity WHERE run_id = ? ORDER BY timestamp`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing equity for run %d: %w", runID, err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var ts int64
		var pt domain.EquityPoint
		if err := rows.Scan(&ts, &pt.Value); err != nil {
			return nil, fmt.Errorf("scanning equity point: %w", err)
		}
		pt.Timestamp = time.UnixMilli(ts).UTC()
		points = append(points, pt)
	}
	return points, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var run RunRecord
	var symbols string
	var start, end, createdAt int64
	if err := sc.Scan(
		&run.ID, &run.Strategy, &symbols, &start, &end, &run.InitialCash,
		&run.FinalValue, &run.Metrics.TotalReturn, &run.Metrics.TotalReturnPercent,
		&run.Metrics.SharpeRatio, &run.Metrics.SortinoRatio, &run.Metrics.MaxDrawdown,
		&run.Metrics.MaxDrawdownDuration, &run.Metrics.WinRate,
		&run.Metrics.ProfitFactor, &run.Metrics.TotalTrades, &createdAt,
	); err != nil {
		return nil, err
	}
	if symbols != "" {
		run.Symbols = strings.Split(symbols, ",")
	}
	run.Start = time.UnixMilli(start).UTC()
	run.End = time.UnixMilli(end).UTC()
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &run, nil
}
