package domain

import (
	"testing"
	"time"
)

func TestBarDerived(t *testing.T) {
	bar := Bar{
		Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Symbol:    "AAPL",
		Open:      100,
		High:      110,
		Low:       95,
		Close:     104,
		Volume:    1_000_000,
	}

	if got, want := bar.TypicalPrice(), (110.0+95.0+104.0)/3.0; got != want {
		t.Errorf("TypicalPrice() = %v, want %v", got, want)
	}
	if got, want := bar.Range(), 15.0; got != want {
		t.Errorf("Range() = %v, want %v", got, want)
	}
}

func TestNewOrderValidation(t *testing.T) {
	// Market orders need no prices.
	o, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeMarket, 0, 0)
	if err != nil {
		t.Fatalf("NewOrder(market) returned error: %v", err)
	}
	if o.Status != OrderStatusPending {
		t.Errorf("new order status = %q, want %q", o.Status, OrderStatusPending)
	}
	if o.TimeInForce != TimeInForceDay {
		t.Errorf("new order time in force = %q, want %q", o.TimeInForce, TimeInForceDay)
	}

	// Limit orders require a limit price.
	if _, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeLimit, 0, 0); err == nil {
		t.Error("NewOrder(limit) without limit price should fail")
	}
	if _, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeLimit, 150, 0); err != nil {
		t.Errorf("NewOrder(limit) with limit price returned error: %v", err)
	}

	// Stop orders require a stop price.
	if _, err := NewOrder("AAPL", OrderSideSell, 100, OrderTypeStop, 0, 0); err == nil {
		t.Error("NewOrder(stop) without stop price should fail")
	}

	// Stop-limit orders require both.
	if _, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeStopLimit, 150, 0); err == nil {
		t.Error("NewOrder(stop_limit) without stop price should fail")
	}
	if _, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeStopLimit, 0, 150); err == nil {
		t.Error("NewOrder(stop_limit) without limit price should fail")
	}
	if _, err := NewOrder("AAPL", OrderSideBuy, 100, OrderTypeStopLimit, 151, 150); err != nil {
		t.Errorf("NewOrder(stop_limit) with both prices returned error: %v", err)
	}

	// Quantity must be positive.
	if _, err := NewOrder("AAPL", OrderSideBuy, 0, OrderTypeMarket, 0, 0); err == nil {
		t.Error("NewOrder with zero quantity should fail")
	}
}

func TestOrderSignedQty(t *testing.T) {
	buy, _ := NewOrder("AAPL", OrderSideBuy, 50, OrderTypeMarket, 0, 0)
	if got := buy.SignedQty(); got != 50 {
		t.Errorf("buy SignedQty() = %d, want 50", got)
	}
	sell, _ := NewOrder("AAPL", OrderSideSell, 50, OrderTypeMarket, 0, 0)
	if got := sell.SignedQty(); got != -50 {
		t.Errorf("sell SignedQty() = %d, want -50", got)
	}
}

func TestOrderIsActive(t *testing.T) {
	o, _ := NewOrder("AAPL", OrderSideBuy, 10, OrderTypeMarket, 0, 0)

	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusSubmitted, OrderStatusPartiallyFilled} {
		o.Status = status
		if !o.IsActive() {
			t.Errorf("IsActive() = false for status %q, want true", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected} {
		o.Status = status
		if o.IsActive() {
			t.Errorf("IsActive() = true for status %q, want false", status)
		}
	}
}

func TestPositionDerived(t *testing.T) {
	long := Position{Symbol: "AAPL", Qty: 100, AvgEntryPrice: 450, CurrentPrice: 460}

	if got, want := long.MarketValue(), 46000.0; got != want {
		t.Errorf("MarketValue() = %v, want %v", got, want)
	}
	if got, want := long.CostBasis(), 45000.0; got != want {
		t.Errorf("CostBasis() = %v, want %v", got, want)
	}
	if got, want := long.UnrealizedPnL(), 1000.0; got != want {
		t.Errorf("UnrealizedPnL() = %v, want %v", got, want)
	}
	if !long.IsLong() || long.IsShort() {
		t.Error("positive qty should be long, not short")
	}

	// Short position: price falling below entry is a gain.
	short := Position{Symbol: "TSLA", Qty: -100, AvgEntryPrice: 200, CurrentPrice: 190}
	if got, want := short.UnrealizedPnL(), 1000.0; got != want {
		t.Errorf("short UnrealizedPnL() = %v, want %v", got, want)
	}
	if !short.IsShort() || short.IsLong() {
		t.Error("negative qty should be short, not long")
	}
}
