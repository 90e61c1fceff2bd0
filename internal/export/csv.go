// Package export writes backtest results to CSV files for analysis in
// spreadsheets or external tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"
)

// WriteEquityCSV writes the equity curve as timestamp,value rows.
func WriteEquityCSV(w io.Writer, equity []domain.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "value"}); err != nil {
		return fmt.Errorf("writing equity header: %w", err)
	}
	for _, pt := range equity {
		row := []string{
			pt.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(pt.Value, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing equity row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the trade log, one executed fill per row.
func WriteTradesCSV(w io.Writer, trades []domain.TradeRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"timestamp", "symbol", "side", "qty", "price", "commission",
		"cash_after", "portfolio_value_after",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing trades header: %w", err)
	}
	for _, tr := range trades {
		row := []string{
			tr.Timestamp.UTC().Format(time.RFC3339),
			tr.Symbol,
			string(tr.Side),
			strconv.Itoa(tr.Qty),
			strconv.FormatFloat(tr.Price, 'f', 4, 64),
			strconv.FormatFloat(tr.Commission, 'f', 4, 64),
			strconv.FormatFloat(tr.CashAfter, 'f', 2, 64),
			strconv.FormatFloat(tr.PortfolioValueAfter, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trade row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityFile writes the equity curve to a CSV file at path.
func WriteEquityFile(path string, equity []domain.EquityPoint) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteEquityCSV(w, equity)
	})
}

// WriteTradesFile writes the trade log to a CSV file at path.
func WriteTradesFile(path string, trades []domain.TradeRecord) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteTradesCSV(w, trades)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
