package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"
)

func TestWriteEquityCSV(t *testing.T) {
	equity := []domain.EquityPoint{
		{Timestamp: time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC), Value: 100000},
		{Timestamp: time.Date(2024, 1, 3, 21, 0, 0, 0, time.UTC), Value: 100250.5},
	}

	var sb strings.Builder
	if err := WriteEquityCSV(&sb, equity); err != nil {
		t.Fatalf("WriteEquityCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if records[0][0] != "timestamp" || records[0][1] != "value" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "2024-01-02T21:00:00Z" || records[1][1] != "100000.00" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][1] != "100250.50" {
		t.Errorf("second row value = %q, want 100250.50", records[2][1])
	}
}

func TestWriteTradesCSV(t *testing.T) {
	trades := []domain.TradeRecord{
		{
			Timestamp:           time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
			Symbol:              "AAPL",
			Side:                domain.OrderSideBuy,
			Qty:                 100,
			Price:               185.5,
			Commission:          0.5,
			CashAfter:           81449.5,
			PortfolioValueAfter: 99999.5,
		},
	}

	var sb strings.Builder
	if err := WriteTradesCSV(&sb, trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(records))
	}
	row := records[1]
	if row[1] != "AAPL" || row[2] != "buy" || row[3] != "100" {
		t.Errorf("trade row = %v", row)
	}
	if row[4] != "185.5000" {
		t.Errorf("price = %q, want 185.5000", row[4])
	}
	if row[6] != "81449.50" {
		t.Errorf("cash_after = %q, want 81449.50", row[6])
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	equityPath := filepath.Join(dir, "equity.csv")
	tradesPath := filepath.Join(dir, "trades.csv")

	if err := WriteEquityFile(equityPath, []domain.EquityPoint{
		{Timestamp: time.Now().UTC(), Value: 12345},
	}); err != nil {
		t.Fatalf("WriteEquityFile: %v", err)
	}
	if err := WriteTradesFile(tradesPath, nil); err != nil {
		t.Fatalf("WriteTradesFile: %v", err)
	}

	data, err := os.ReadFile(equityPath)
	if err != nil {
		t.Fatalf("reading equity file: %v", err)
	}
	if !strings.HasPrefix(string(data), "timestamp,value\n") {
		t.Errorf("equity file starts with %q", string(data)[:20])
	}

	data, err = os.ReadFile(tradesPath)
	if err != nil {
		t.Fatalf("reading trades file: %v", err)
	}
	if !strings.Contains(string(data), "portfolio_value_after") {
		t.Error("trades file missing header")
	}
}
