package strategy

import (
	"context"
	"time"

	"github.com/MalteJ/paperhands/internal/broker"
	"github.com/MalteJ/paperhands/internal/data"
	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
)

// Context is the capability set handed to strategies. Strategies never
// touch the broker, portfolio, or data provider directly; everything goes
// through here, which is what keeps strategy code portable between
// backtest and live runs.
type Context struct {
	broker    broker.Broker
	portfolio *portfolio.Portfolio
	provider  data.Provider

	// now is advanced by the engine before each timestamp's callbacks.
	now time.Time
}

// NewContext wires a Context over the given broker, portfolio, and data
// provider.
func NewContext(b broker.Broker, p *portfolio.Portfolio, provider data.Provider) *Context {
	return &Context{broker: b, portfolio: p, provider: provider}
}

// SetCurrentTime records the simulation clock. Called by the engine.
func (c *Context) SetCurrentTime(t time.Time) { c.now = t }

// CurrentTime returns the timestamp currently being processed.
func (c *Context) CurrentTime() time.Time { return c.now }

// ---------------------------------------------------------------------------
// Portfolio queries
// ---------------------------------------------------------------------------

// Cash returns available cash.
func (c *Context) Cash() float64 { return c.portfolio.Cash() }

// PortfolioValue returns total portfolio value.
func (c *Context) PortfolioValue() float64 { return c.portfolio.Value() }

// BuyingPower returns available buying power.
func (c *Context) BuyingPower() float64 { return c.portfolio.BuyingPower() }

// Position returns the position for symbol, if one exists.
func (c *Context) Position(symbol string) (domain.Position, bool) {
	return c.portfolio.Position(symbol)
}

// PositionSize returns the signed quantity held in symbol.
func (c *Context) PositionSize(symbol string) int {
	return c.portfolio.PositionSize(symbol)
}

// HasPosition reports whether an open position exists in symbol.
func (c *Context) HasPosition(symbol string) bool {
	return c.portfolio.HasPosition(symbol)
}

// AllPositions returns all open positions.
func (c *Context) AllPositions() []domain.Position {
	return c.portfolio.AllPositions()
}

// CanAfford reports whether qty shares at price fit within available cash.
func (c *Context) CanAfford(qty int, price float64) bool {
	return c.portfolio.CanAfford(qty, price)
}

// ---------------------------------------------------------------------------
// Order submission
// ---------------------------------------------------------------------------

// Buy submits a market buy order.
func (c *Context) Buy(symbol string, qty int) (*domain.Order, error) {
	return c.order(symbol, domain.OrderSideBuy, qty, domain.OrderTypeMarket, 0, 0)
}

// BuyLimit submits a limit buy order.
func (c *Context) BuyLimit(symbol string, qty int, limitPrice float64) (*domain.Order, error) {
	return c.order(symbol, domain.OrderSideBuy, qty, domain.OrderTypeLimit, limitPrice, 0)
}

// Sell submits a market sell order.
func (c *Context) Sell(symbol string, qty int) (*domain.Order, error) {
	return c.order(symbol, domain.OrderSideSell, qty, domain.OrderTypeMarket, 0, 0)
}

// SellLimit submits a limit sell order.
func (c *Context) SellLimit(symbol string, qty int, limitPrice float64) (*domain.Order, error) {
	return c.order(symbol, domain.OrderSideSell, qty, domain.OrderTypeLimit, limitPrice, 0)
}

// StopLoss submits a stop sell order.
func (c *Context) StopLoss(symbol string, qty int, stopPrice float64) (*domain.Order, error) {
	return c.order(symbol, domain.OrderSideSell, qty, domain.OrderTypeStop, 0, stopPrice)
}

// SubmitOrder submits a custom, pre-constructed order.
func (c *Context) SubmitOrder(order *domain.Order) (*domain.Order, error) {
	return c.broker.SubmitOrder(order)
}

// CancelOrder cancels an open order by ID. Returns true when the order was
// still cancellable.
func (c *Context) CancelOrder(orderID string) bool {
	return c.broker.CancelOrder(orderID)
}

// OpenOrders returns all currently open orders.
func (c *Context) OpenOrders() []*domain.Order {
	return c.broker.OpenOrders()
}

func (c *Context) order(symbol string, side domain.OrderSide, qty int, orderType domain.OrderType, limit, stop float64) (*domain.Order, error) {
	o, err := domain.NewOrder(symbol, side, qty, orderType, limit, stop)
	if err != nil {
		return nil, err
	}
	return c.broker.SubmitOrder(o)
}

// ---------------------------------------------------------------------------
// Data access
// ---------------------------------------------------------------------------

// HistoricalBars returns bars for symbol within [start, end] from the data
// provider.
func (c *Context) HistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]domain.Bar, error) {
	return c.provider.GetBars(ctx, symbol, start, end, timeframe)
}

// LatestBar returns the most recent bar available for symbol.
func (c *Context) LatestBar(ctx context.Context, symbol string) (domain.Bar, bool, error) {
	return c.provider.GetLatestBar(ctx, symbol)
}

// ---------------------------------------------------------------------------
// Position sizing helpers
// ---------------------------------------------------------------------------

// PositionSizeForRisk returns the share count that puts riskPercent of the
// portfolio value to work at the given price, with a floor of one share.
func (c *Context) PositionSizeForRisk(price, riskPercent float64) int {
	riskAmount := c.PortfolioValue() * riskPercent / 100.0
	shares := int(riskAmount / price)
	return max(1, shares)
}

// PositionSizeForAmount returns the share count a fixed dollar amount buys
// at the given price.
func (c *Context) PositionSizeForAmount(price, amount float64) int {
	return int(amount / price)
}
