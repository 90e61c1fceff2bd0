// Package builtins provides built-in strategy implementations that ship
// with paperhands.
package builtins

import (
	"log/slog"

	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross is a simple moving average crossover strategy. It buys when the
// short-period SMA crosses above the long-period SMA and exits when it
// crosses back below. Warmup bars prime the price buffers without trading.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	qty         int

	closes map[string][]float64
	log    *slog.Logger
}

// NewSMACross creates an SMACross with the given short and long periods,
// trading qty shares per entry.
func NewSMACross(short, long, qty int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		qty:         qty,
		closes:      make(map[string][]float64),
		log:         slog.Default().With("strategy", "sma-cross"),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// OnStart resets the per-symbol price buffers.
func (s *SMACross) OnStart(_ *strategy.Context) error {
	s.closes = make(map[string][]float64)
	return nil
}

// OnBar appends the close to the symbol's buffer and trades the crossover
// once both SMAs are defined.
func (s *SMACross) OnBar(c *strategy.Context, bar domain.Bar) error {
	closes := append(s.closes[bar.Symbol], bar.Close)
	// The long SMA only ever needs the trailing longPeriod+1 closes.
	if len(closes) > s.longPeriod+1 {
		closes = closes[len(closes)-s.longPeriod-1:]
	}
	s.closes[bar.Symbol] = closes

	if len(closes) < s.longPeriod+1 {
		return nil
	}

	shortNow := sma(closes, s.shortPeriod, 0)
	longNow := sma(closes, s.longPeriod, 0)
	shortPrev := sma(closes, s.shortPeriod, 1)
	longPrev := sma(closes, s.longPeriod, 1)

	crossedUp := shortPrev <= longPrev && shortNow > longNow
	crossedDown := shortPrev >= longPrev && shortNow < longNow

	switch {
	case crossedUp && !c.HasPosition(bar.Symbol):
		if !c.CanAfford(s.qty, bar.Close) {
			s.log.Warn("skipping entry, insufficient cash", "symbol", bar.Symbol, "price", bar.Close)
			return nil
		}
		if _, err := c.Buy(bar.Symbol, s.qty); err != nil {
			// Rejections (e.g. during warmup) are not fatal to the strategy.
			s.log.Warn("buy rejected", "symbol", bar.Symbol, "err", err)
		}
	case crossedDown && c.PositionSize(bar.Symbol) > 0:
		if _, err := c.Sell(bar.Symbol, c.PositionSize(bar.Symbol)); err != nil {
			s.log.Warn("sell rejected", "symbol", bar.Symbol, "err", err)
		}
	}
	return nil
}

// OnFill logs the fill.
func (s *SMACross) OnFill(_ *strategy.Context, fill domain.Fill) error {
	s.log.Info("fill",
		"symbol", fill.Order.Symbol,
		"side", fill.Order.Side,
		"qty", fill.Qty,
		"price", fill.Price,
	)
	return nil
}

// OnStop is a no-op.
func (s *SMACross) OnStop(_ *strategy.Context) error { return nil }

// sma returns the mean of the last period closes, skipping the final skip
// entries. Callers guarantee the buffer is long enough.
func sma(closes []float64, period, skip int) float64 {
	end := len(closes) - skip
	var sum float64
	for _, c := range closes[end-period : end] {
		sum += c
	}
	return sum / float64(period)
}
