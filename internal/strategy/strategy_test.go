package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/MalteJ/paperhands/internal/broker"
	"github.com/MalteJ/paperhands/internal/data"
	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                          { return s.name }
func (s *stubStrategy) OnStart(_ *Context) error              { return nil }
func (s *stubStrategy) OnBar(_ *Context, _ domain.Bar) error  { return nil }
func (s *stubStrategy) OnFill(_ *Context, _ domain.Fill) error { return nil }
func (s *stubStrategy) OnStop(_ *Context) error               { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{name: "test-strategy"}

	r.Register(s)

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})
	r.Register(&stubStrategy{name: "beta"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func newTestContext(t *testing.T) (*Context, *broker.Simulator, *portfolio.Portfolio) {
	t.Helper()
	p := portfolio.New(100000)
	sim := broker.NewSimulator(p, 0, 0)
	bars := map[string][]domain.Bar{
		"AAPL": {
			{Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Symbol: "AAPL", Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000},
			{Timestamp: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Symbol: "AAPL", Open: 101, High: 102, Low: 100, Close: 101, Volume: 1100},
		},
	}
	return NewContext(sim, p, data.NewStaticProvider(bars)), sim, p
}

func TestContextOrderHelpers(t *testing.T) {
	c, sim, p := newTestContext(t)

	o, err := c.Buy("AAPL", 100)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if o.Side != domain.OrderSideBuy || o.Type != domain.OrderTypeMarket || o.Qty != 100 {
		t.Errorf("Buy produced order %+v, want market buy of 100", o)
	}

	lo, err := c.SellLimit("AAPL", 50, 110)
	if err != nil {
		t.Fatalf("SellLimit: %v", err)
	}
	if lo.Type != domain.OrderTypeLimit || lo.LimitPrice != 110 {
		t.Errorf("SellLimit produced order %+v, want limit 110", lo)
	}

	// Validation errors surface before the broker sees the order.
	if _, err := c.BuyLimit("AAPL", 10, 0); err == nil {
		t.Error("BuyLimit with zero limit price should fail")
	}

	if got := len(c.OpenOrders()); got != 2 {
		t.Errorf("OpenOrders() = %d, want 2", got)
	}
	if !c.CancelOrder(lo.ID) {
		t.Error("CancelOrder returned false for open order")
	}

	sim.ProcessBar("AAPL", 450, 452, 448, 451, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	if got := c.PositionSize("AAPL"); got != 100 {
		t.Errorf("PositionSize() = %d after fill, want 100", got)
	}
	if got, want := c.Cash(), p.Cash(); got != want {
		t.Errorf("Cash() = %v, want %v", got, want)
	}
}

func TestContextDataAccess(t *testing.T) {
	c, _, _ := newTestContext(t)

	bars, err := c.HistoricalBars(context.Background(), "AAPL",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), "1Day")
	if err != nil {
		t.Fatalf("HistoricalBars: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("HistoricalBars returned %d bars, want 2", len(bars))
	}

	latest, ok, err := c.LatestBar(context.Background(), "AAPL")
	if err != nil || !ok {
		t.Fatalf("LatestBar: ok=%v err=%v", ok, err)
	}
	if latest.Open != 101 {
		t.Errorf("LatestBar open = %v, want 101", latest.Open)
	}
}

func TestContextPositionSizing(t *testing.T) {
	c, _, _ := newTestContext(t)

	// 2% of 100k = 2000; at $50 that is 40 shares.
	if got := c.PositionSizeForRisk(50, 2.0); got != 40 {
		t.Errorf("PositionSizeForRisk(50, 2%%) = %d, want 40", got)
	}
	// Floor of one share even when the risk budget is tiny.
	if got := c.PositionSizeForRisk(1e9, 0.001); got != 1 {
		t.Errorf("PositionSizeForRisk floor = %d, want 1", got)
	}
	if got := c.PositionSizeForAmount(50, 2000); got != 40 {
		t.Errorf("PositionSizeForAmount(50, 2000) = %d, want 40", got)
	}
}
