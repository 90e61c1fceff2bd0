// Package domain defines the core value types shared across the simulator:
// bars, orders, positions, fills, and the ledger history records.
package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType selects the fill rule applied by the broker.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is the lifecycle state of an order.
//
// Valid transitions: pending → submitted → {filled, canceled, rejected}.
// PartiallyFilled exists for completeness of the model; the simulator fills
// all-or-nothing per bar and never produces it.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// TimeInForce describes how long an order remains working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// ---------------------------------------------------------------------------
// Bar
// ---------------------------------------------------------------------------

// Bar is an OHLCV price summary for one symbol over one period. Bars are
// immutable once produced.
type Bar struct {
	Timestamp time.Time
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// TypicalPrice returns (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// Range returns high − low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// Order is a trading order. The broker owns an Order exclusively from
// submission until it reaches a terminal status; the portfolio never
// mutates one.
type Order struct {
	Symbol      string
	Side        OrderSide
	Qty         int
	Type        OrderType
	TimeInForce TimeInForce
	LimitPrice  float64 // required for limit and stop-limit orders
	StopPrice   float64 // required for stop and stop-limit orders

	// Set by the broker.
	ID             string
	Status         OrderStatus
	SubmittedAt    time.Time
	FilledAt       time.Time
	FilledQty      int
	FilledAvgPrice float64
}

// NewOrder constructs a validated order in the pending state. Limit orders
// require a limit price, stop orders a stop price, and stop-limit orders
// both; a missing price is a construction-time error.
func NewOrder(symbol string, side OrderSide, qty int, orderType OrderType, limitPrice, stopPrice float64) (*Order, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("order quantity must be positive, got %d", qty)
	}
	switch orderType {
	case OrderTypeLimit:
		if limitPrice <= 0 {
			return nil, fmt.Errorf("limit order for %s requires a limit price", symbol)
		}
	case OrderTypeStop:
		if stopPrice <= 0 {
			return nil, fmt.Errorf("stop order for %s requires a stop price", symbol)
		}
	case OrderTypeStopLimit:
		if limitPrice <= 0 || stopPrice <= 0 {
			return nil, fmt.Errorf("stop-limit order for %s requires both limit and stop prices", symbol)
		}
	}
	return &Order{
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Type:        orderType,
		TimeInForce: TimeInForceDay,
		LimitPrice:  limitPrice,
		StopPrice:   stopPrice,
		Status:      OrderStatusPending,
	}, nil
}

// IsFilled reports whether the order is fully filled.
func (o *Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// IsActive reports whether the order can still fill or be canceled.
func (o *Order) IsActive() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusPartiallyFilled:
		return true
	}
	return false
}

// SignedQty returns the order quantity signed by side: positive for buys,
// negative for sells.
func (o *Order) SignedQty() int {
	if o.Side == OrderSideSell {
		return -o.Qty
	}
	return o.Qty
}

// ---------------------------------------------------------------------------
// Position
// ---------------------------------------------------------------------------

// Position is a holding in a single symbol. Qty is signed: positive long,
// negative short. A position exists only while Qty != 0.
type Position struct {
	Symbol        string
	Qty           int
	AvgEntryPrice float64
	CurrentPrice  float64
}

// MarketValue returns qty × current price.
func (p Position) MarketValue() float64 {
	return float64(p.Qty) * p.CurrentPrice
}

// CostBasis returns qty × average entry price.
func (p Position) CostBasis() float64 {
	return float64(p.Qty) * p.AvgEntryPrice
}

// UnrealizedPnL returns market value − cost basis.
func (p Position) UnrealizedPnL() float64 {
	return p.MarketValue() - p.CostBasis()
}

// UnrealizedPnLPercent returns the unrealized P&L as a percentage of cost
// basis, or 0 when the cost basis is zero.
func (p Position) UnrealizedPnLPercent() float64 {
	cb := p.CostBasis()
	if cb == 0 {
		return 0.0
	}
	return p.UnrealizedPnL() / cb * 100.0
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool { return p.Qty > 0 }

// IsShort reports whether the position is short.
func (p Position) IsShort() bool { return p.Qty < 0 }

// ---------------------------------------------------------------------------
// Fill and history records
// ---------------------------------------------------------------------------

// Fill records the execution of an order at a concrete price and quantity.
// The broker produces one Fill per filled order and delivers it to the
// strategy exactly once.
type Fill struct {
	Order      *Order
	Price      float64
	Qty        int
	Timestamp  time.Time
	Commission float64
}

// TradeRecord is one entry in the portfolio's append-only audit log,
// written on every fill.
type TradeRecord struct {
	Timestamp           time.Time
	Symbol              string
	Side                OrderSide
	Qty                 int
	Price               float64
	Commission          float64
	CashAfter           float64
	PortfolioValueAfter float64
}

// EquityPoint is one sample of total portfolio value, taken once per
// processed live timestamp.
type EquityPoint struct {
	Timestamp time.Time
	Value     float64
}
