package analytics

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Report renders all computed metrics as a fixed-format text report.
func (p *Performance) Report() string {
	m := p.Calculate()

	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "PERFORMANCE REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Returns:")
	fmt.Fprintf(&b, "  Total Return:        $%s\n", money(m.TotalReturn))
	fmt.Fprintf(&b, "  Total Return %%:      %.2f%%\n", m.TotalReturnPercent)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Risk Metrics:")
	fmt.Fprintf(&b, "  Sharpe Ratio:        %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "  Sortino Ratio:       %.2f\n", m.SortinoRatio)
	fmt.Fprintf(&b, "  Max Drawdown:        %.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(&b, "  Max DD Duration:     %d periods\n", m.MaxDrawdownDuration)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Trade Statistics:")
	fmt.Fprintf(&b, "  Total Trades:        %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "  Win Rate:            %.2f%%\n", m.WinRate)
	fmt.Fprintf(&b, "  Profit Factor:       %s\n", ratio(m.ProfitFactor))
	fmt.Fprintf(&b, "  Avg Trade P&L:       $%s\n", money(m.AvgTradePnL))
	fmt.Fprintf(&b, "  Avg Win:             $%s\n", money(m.AvgWin))
	fmt.Fprintf(&b, "  Avg Loss:            $%s\n", money(m.AvgLoss))
	fmt.Fprintf(&b, "  Largest Win:         $%s\n", money(m.LargestWin))
	fmt.Fprintf(&b, "  Largest Loss:        $%s\n", money(m.LargestLoss))
	fmt.Fprintln(&b, rule)

	return b.String()
}

// money formats a dollar amount with thousands separators and two decimals.
func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// ratio renders a ratio, spelling out an infinite profit factor.
func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "Inf"
	}
	return fmt.Sprintf("%.2f", v)
}
