package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/MalteJ/paperhands/internal/analytics"
	"github.com/MalteJ/paperhands/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", "1Day", 2024)
	wantBarPath := filepath.Join("/data", "bars", "1Day", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}
}

func TestMergeBarRecords(t *testing.T) {
	existing := []BarRecord{
		{Symbol: "AAPL", Timestamp: 1000, Close: 100},
		{Symbol: "AAPL", Timestamp: 2000, Close: 101},
	}
	incoming := []BarRecord{
		{Symbol: "AAPL", Timestamp: 2000, Close: 999}, // overwrites existing
		{Symbol: "AAPL", Timestamp: 3000, Close: 102},
	}

	merged := mergeBarRecords(existing, incoming)
	if len(merged) != 3 {
		t.Fatalf("merged %d records, want 3", len(merged))
	}
	// Sorted by timestamp.
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Timestamp > merged[i].Timestamp {
			t.Errorf("merged records not sorted: %v", merged)
		}
	}
	// Incoming wins on conflict.
	if merged[1].Close != 999 {
		t.Errorf("merged[1].Close = %v, want 999 (incoming record)", merged[1].Close)
	}
}

func TestParquetStoreRoundTrip(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Symbol: "AAPL", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
		{Timestamp: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Symbol: "AAPL", Open: 101, High: 102, Low: 100, Close: 101.5, Volume: 1100},
		{Timestamp: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Symbol: "AAPL", Open: 95, High: 96, Low: 94, Close: 95.5, Volume: 900},
	}
	if err := ps.WriteBars(ctx, bars, "1Day"); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Read across the year boundary.
	got, err := ps.ReadBars(ctx, "AAPL", "1Day",
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars, want 3", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) || !got[1].Timestamp.Before(got[2].Timestamp) {
		t.Errorf("bars not sorted by timestamp: %v", got)
	}
	if got[0].Close != 95.5 {
		t.Errorf("first bar close = %v, want 95.5", got[0].Close)
	}

	// Range filtering.
	june, err := ps.ReadBars(ctx, "AAPL", "1Day",
		time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(june) != 1 || june[0].Open != 101 {
		t.Errorf("range read = %v, want the single 2024-06-04 bar", june)
	}

	symbols, err := ps.ListSymbols(ctx, "1Day")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "AAPL" {
		t.Errorf("ListSymbols = %v, want [AAPL]", symbols)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	run := &RunRecord{
		Strategy:    "sma-cross",
		Symbols:     []string{"AAPL", "MSFT"},
		Start:       start,
		End:         end,
		InitialCash: 100000,
		FinalValue:  112500,
		Metrics: analytics.Metrics{
			TotalReturn:         12500,
			TotalReturnPercent:  12.5,
			SharpeRatio:         1.4,
			SortinoRatio:        1.9,
			MaxDrawdown:         -6.2,
			MaxDrawdownDuration: 11,
			WinRate:             62.5,
			ProfitFactor:        2.1,
			TotalTrades:         16,
		},
	}
	trades := []domain.TradeRecord{
		{Timestamp: start, Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 100, Price: 185.5, Commission: 1, CashAfter: 81449, PortfolioValueAfter: 99999},
		{Timestamp: start.AddDate(0, 1, 0), Symbol: "AAPL", Side: domain.OrderSideSell, Qty: 100, Price: 190, Commission: 1, CashAfter: 100448, PortfolioValueAfter: 100448},
	}
	equity := []domain.EquityPoint{
		{Timestamp: start, Value: 100000},
		{Timestamp: start.AddDate(0, 0, 1), Value: 100200},
	}

	id, err := s.SaveRun(ctx, run, trades, equity)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == 0 {
		t.Fatal("SaveRun returned id 0")
	}

	got, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Strategy != "sma-cross" {
		t.Errorf("run strategy = %q, want sma-cross", got.Strategy)
	}
	if len(got.Symbols) != 2 || got.Symbols[0] != "AAPL" || got.Symbols[1] != "MSFT" {
		t.Errorf("run symbols = %v, want [AAPL MSFT]", got.Symbols)
	}
	if !got.Start.Equal(start) || !got.End.Equal(end) {
		t.Errorf("run range = [%v, %v], want [%v, %v]", got.Start, got.End, start, end)
	}
	if math.Abs(got.Metrics.SharpeRatio-1.4) > 1e-9 {
		t.Errorf("run sharpe = %v, want 1.4", got.Metrics.SharpeRatio)
	}
	if got.Metrics.MaxDrawdownDuration != 11 || got.Metrics.TotalTrades != 16 {
		t.Errorf("run metrics = %+v", got.Metrics)
	}

	gotTrades, err := s.GetTrades(ctx, id)
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(gotTrades) != 2 {
		t.Fatalf("GetTrades returned %d trades, want 2", len(gotTrades))
	}
	if gotTrades[0].Side != domain.OrderSideBuy || gotTrades[0].Price != 185.5 {
		t.Errorf("first trade = %+v, want buy @ 185.5", gotTrades[0])
	}
	if gotTrades[1].Side != domain.OrderSideSell {
		t.Errorf("second trade side = %q, want sell (insertion order)", gotTrades[1].Side)
	}

	gotEquity, err := s.GetEquity(ctx, id)
	if err != nil {
		t.Fatalf("GetEquity: %v", err)
	}
	if len(gotEquity) != 2 {
		t.Fatalf("GetEquity returned %d points, want 2", len(gotEquity))
	}
	if gotEquity[0].Value != 100000 || gotEquity[1].Value != 100200 {
		t.Errorf("equity values = %v, want [100000 100200]", gotEquity)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("ListRuns = %v, want the single saved run", runs)
	}
}
