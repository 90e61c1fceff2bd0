package builtins

import (
	"testing"
	"time"

	"github.com/MalteJ/paperhands/internal/broker"
	"github.com/MalteJ/paperhands/internal/data"
	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
	"github.com/MalteJ/paperhands/internal/strategy"
)

// feedBar mirrors the engine's per-bar order: broker matching first, then
// the strategy callback.
func feedBar(t *testing.T, s *SMACross, c *strategy.Context, b *broker.Simulator, day int, price float64) {
	t.Helper()
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	c.SetCurrentTime(ts)
	b.ProcessBar("AAPL", price, price, price, price, ts)
	bar := domain.Bar{
		Timestamp: ts,
		Symbol:    "AAPL",
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    1000,
	}
	if err := s.OnBar(c, bar); err != nil {
		t.Fatalf("OnBar(day %d): %v", day, err)
	}
}

func TestSMACrossTradesTheCrossover(t *testing.T) {
	p := portfolio.New(100000)
	b := broker.NewSimulator(p, 0, 0)
	c := strategy.NewContext(b, p, data.NewStaticProvider(nil))

	s := NewSMACross(2, 3, 10)
	if err := s.OnStart(c); err != nil {
		t.Fatalf("OnStart: %v", err)
	}

	// Downtrend, then a spike: the 2-bar SMA crosses above the 3-bar SMA
	// on the fourth close.
	prices := []float64{10, 9, 8, 12}
	for day, price := range prices {
		feedBar(t, s, c, b, day, price)
	}
	open := b.OpenOrders()
	if len(open) != 1 || open[0].Side != domain.OrderSideBuy || open[0].Qty != 10 {
		t.Fatalf("after crossover up, open orders = %v, want one buy of 10", open)
	}

	// The buy fills at the next bar's open; no cross-down signal yet.
	feedBar(t, s, c, b, 4, 7)
	if got := c.PositionSize("AAPL"); got != 10 {
		t.Fatalf("position after fill = %d, want 10", got)
	}

	// Collapse triggers the cross down and a full exit.
	feedBar(t, s, c, b, 5, 1)
	open = b.OpenOrders()
	if len(open) != 1 || open[0].Side != domain.OrderSideSell || open[0].Qty != 10 {
		t.Fatalf("after crossover down, open orders = %v, want one sell of 10", open)
	}

	feedBar(t, s, c, b, 6, 1)
	if c.HasPosition("AAPL") {
		t.Error("position should be flat after the exit fill")
	}
}

func TestSMACrossNeedsWarmup(t *testing.T) {
	p := portfolio.New(100000)
	b := broker.NewSimulator(p, 0, 0)
	c := strategy.NewContext(b, p, data.NewStaticProvider(nil))

	s := NewSMACross(2, 3, 10)
	if err := s.OnStart(c); err != nil {
		t.Fatalf("OnStart: %v", err)
	}

	// Fewer closes than long period + 1: no signal possible.
	for day, price := range []float64{10, 20, 30} {
		feedBar(t, s, c, b, day, price)
	}
	if got := len(b.OpenOrders()); got != 0 {
		t.Errorf("orders before buffers are primed = %d, want 0", got)
	}
}

func TestSMAHelper(t *testing.T) {
	closes := []float64{1, 2, 3, 4}
	if got := sma(closes, 2, 0); got != 3.5 {
		t.Errorf("sma(period 2) = %v, want 3.5", got)
	}
	if got := sma(closes, 2, 1); got != 2.5 {
		t.Errorf("sma(period 2, skip 1) = %v, want 2.5", got)
	}
	if got := sma(closes, 4, 0); got != 2.5 {
		t.Errorf("sma(period 4) = %v, want 2.5", got)
	}
}
