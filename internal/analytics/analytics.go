// Package analytics derives risk/return metrics and round-trip trade P&L
// from a portfolio's recorded history. Everything here is a pure function
// of the equity curve and trade log; nothing mutates portfolio state.
package analytics

import (
	"math"

	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
)

// PeriodsPerYear is the default annualization factor for Sharpe and
// Sortino, assuming daily bars.
const PeriodsPerYear = 252

// Performance computes metrics over one backtest's recorded history.
type Performance struct {
	initialCash float64
	finalValue  float64
	equity      []domain.EquityPoint
	trades      []domain.TradeRecord
}

// FromPortfolio captures the history of a finished run for analysis.
func FromPortfolio(p *portfolio.Portfolio) *Performance {
	return &Performance{
		initialCash: p.InitialCash(),
		finalValue:  p.Value(),
		equity:      p.EquityHistory(),
		trades:      p.TradeHistory(),
	}
}

// New creates a Performance over raw history, for callers that do not hold
// a live portfolio (e.g. analyzing persisted runs).
func New(initialCash, finalValue float64, equity []domain.EquityPoint, trades []domain.TradeRecord) *Performance {
	return &Performance{
		initialCash: initialCash,
		finalValue:  finalValue,
		equity:      equity,
		trades:      trades,
	}
}

// Metrics is the full computed metric set. Field order follows the report.
type Metrics struct {
	TotalReturn         float64
	TotalReturnPercent  float64
	SharpeRatio         float64
	SortinoRatio        float64
	MaxDrawdown         float64 // percent, ≤ 0
	MaxDrawdownDuration int     // equity samples spent below the running max
	WinRate             float64 // percent of round trips > 0
	ProfitFactor        float64 // +Inf when there are wins and no losses
	TotalTrades         int     // fills recorded, not round trips
	AvgTradePnL         float64
	AvgWin              float64
	AvgLoss             float64
	LargestWin          float64
	LargestLoss         float64
}

// Calculate computes all metrics.
func (p *Performance) Calculate() Metrics {
	pnls := p.TradePnLs()
	maxDD, maxDDDuration := p.drawdown()

	return Metrics{
		TotalReturn:         p.TotalReturn(),
		TotalReturnPercent:  p.TotalReturnPercent(),
		SharpeRatio:         p.SharpeRatio(),
		SortinoRatio:        p.SortinoRatio(),
		MaxDrawdown:         maxDD,
		MaxDrawdownDuration: maxDDDuration,
		WinRate:             winRate(pnls),
		ProfitFactor:        profitFactor(pnls),
		TotalTrades:         len(p.trades),
		AvgTradePnL:         mean(pnls),
		AvgWin:              mean(filter(pnls, func(v float64) bool { return v > 0 })),
		AvgLoss:             mean(filter(pnls, func(v float64) bool { return v < 0 })),
		LargestWin:          maxOrZero(pnls),
		LargestLoss:         minOrZero(pnls),
	}
}

// TotalReturn returns the absolute dollar return of the run.
func (p *Performance) TotalReturn() float64 {
	return p.finalValue - p.initialCash
}

// TotalReturnPercent returns the total return as a percentage of initial
// cash, or 0 when initial cash is zero.
func (p *Performance) TotalReturnPercent() float64 {
	if p.initialCash == 0 {
		return 0.0
	}
	return p.TotalReturn() / p.initialCash * 100.0
}

// SharpeRatio is √periods × mean(returns) / stdev(returns) over simple
// per-period equity returns, with a zero risk-free rate. It is 0 when
// there are too few samples or zero variance.
func (p *Performance) SharpeRatio() float64 {
	returns := p.returns()
	sd := stdev(returns)
	if sd == 0 {
		return 0.0
	}
	return math.Sqrt(PeriodsPerYear) * mean(returns) / sd
}

// SortinoRatio is the Sharpe numerator over the standard deviation of only
// the negative-return periods. It is 0 when there are no negative periods
// or zero downside variance.
func (p *Performance) SortinoRatio() float64 {
	returns := p.returns()
	downside := filter(returns, func(v float64) bool { return v < 0 })
	sd := stdev(downside)
	if sd == 0 {
		return 0.0
	}
	return math.Sqrt(PeriodsPerYear) * mean(returns) / sd
}

// MaxDrawdown returns the deepest peak-to-trough decline as a (negative or
// zero) percentage of the running maximum.
func (p *Performance) MaxDrawdown() float64 {
	dd, _ := p.drawdown()
	return dd
}

// MaxDrawdownDuration returns the longest consecutive run of equity
// samples spent below the running maximum.
func (p *Performance) MaxDrawdownDuration() int {
	_, d := p.drawdown()
	return d
}

func (p *Performance) drawdown() (float64, int) {
	if len(p.equity) < 2 {
		return 0.0, 0
	}

	runningMax := p.equity[0].Value
	maxDD := 0.0
	maxDuration, duration := 0, 0

	for _, pt := range p.equity {
		if pt.Value > runningMax {
			runningMax = pt.Value
		}
		if pt.Value < runningMax {
			duration++
			maxDuration = max(maxDuration, duration)
			if runningMax != 0 {
				dd := (pt.Value - runningMax) / runningMax * 100.0
				maxDD = math.Min(maxDD, dd)
			}
		} else {
			duration = 0
		}
	}
	return maxDD, maxDuration
}

// TradePnLs reconstructs round-trip trade P&L by replaying the trade log
// in order, maintaining a signed per-symbol running (quantity, cost basis)
// pair the same way the ledger does. Closing fills realize against the
// running cost basis and append one P&L entry per closing fill; a fill
// that reverses a position realizes the closable part and reopens the
// remainder at the fill price. Long and short round trips are both
// reconstructed.
func (p *Performance) TradePnLs() []float64 {
	type running struct {
		qty       int
		costBasis float64
	}

	var pnls []float64
	positions := make(map[string]*running)

	for _, trade := range p.trades {
		pos := positions[trade.Symbol]
		if pos == nil {
			pos = &running{}
			positions[trade.Symbol] = pos
		}

		qty := trade.Qty
		if trade.Side == domain.OrderSideSell {
			qty = -qty
		}

		// Same direction (or flat): extend at the weighted-average cost.
		if pos.qty == 0 || (pos.qty > 0) == (qty > 0) {
			totalCost := pos.costBasis*math.Abs(float64(pos.qty)) + trade.Price*math.Abs(float64(qty))
			pos.qty += qty
			if pos.qty != 0 {
				pos.costBasis = totalCost / math.Abs(float64(pos.qty))
			}
			continue
		}

		// Opposite direction: close up to the running quantity.
		closed := min(abs(qty), abs(pos.qty))
		if pos.qty > 0 {
			pnls = append(pnls, (trade.Price-pos.costBasis)*float64(closed))
		} else {
			pnls = append(pnls, (pos.costBasis-trade.Price)*float64(closed))
		}
		pos.qty += qty

		// Reversal: the excess opens a new position at the fill price.
		if abs(qty) > closed {
			pos.costBasis = trade.Price
		}
	}
	return pnls
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// returns computes simple per-period returns of the equity curve.
func (p *Performance) returns() []float64 {
	if len(p.equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(p.equity)-1)
	for i := 1; i < len(p.equity); i++ {
		prev := p.equity[i-1].Value
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (p.equity[i].Value-prev)/prev)
	}
	return out
}

func winRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0.0
	}
	wins := 0
	for _, v := range pnls {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(pnls)) * 100.0
}

// profitFactor is gross wins over gross losses: +Inf only when there are
// wins and no losses, 0 when there are no trades or no wins.
func profitFactor(pnls []float64) float64 {
	var wins, losses float64
	for _, v := range pnls {
		if v > 0 {
			wins += v
		} else if v < 0 {
			losses += -v
		}
	}
	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}
		return 0.0
	}
	return wins / losses
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// stdev is the sample standard deviation (n−1 denominator), 0 when fewer
// than two samples.
func stdev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0.0
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}

func filter(vs []float64, keep func(float64) bool) []float64 {
	var out []float64
	for _, v := range vs {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func maxOrZero(vs []float64) float64 {
	best := 0.0
	for _, v := range vs {
		if v > best {
			best = v
		}
	}
	return best
}

func minOrZero(vs []float64) float64 {
	worst := 0.0
	for _, v := range vs {
		if v < worst {
			worst = v
		}
	}
	return worst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
