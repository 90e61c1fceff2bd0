// Package portfolio implements the account ledger: cash, open positions,
// realized P&L, and the append-only trade and equity history logs. It is the
// single source of truth for account state in both backtests and paper runs.
package portfolio

import (
	"sort"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"
)

// Portfolio tracks cash, positions, and P&L across fills. All mutation goes
// through ProcessFill and UpdatePositionPrices; everything else is read-only.
type Portfolio struct {
	initialCash float64
	cash        float64
	positions   map[string]*domain.Position
	realizedPnL float64

	equityHistory []domain.EquityPoint
	tradeHistory  []domain.TradeRecord
}

// New creates a Portfolio with the given starting cash balance.
func New(initialCash float64) *Portfolio {
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*domain.Position),
	}
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

// InitialCash returns the starting cash balance.
func (p *Portfolio) InitialCash() float64 { return p.initialCash }

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// PositionsValue returns the summed market value of all open positions.
func (p *Portfolio) PositionsValue() float64 {
	var total float64
	for _, pos := range p.positions {
		total += pos.MarketValue()
	}
	return total
}

// Value returns total portfolio value: cash plus positions value.
func (p *Portfolio) Value() float64 {
	return p.cash + p.PositionsValue()
}

// RealizedPnL returns cumulative realized profit and loss.
func (p *Portfolio) RealizedPnL() float64 { return p.realizedPnL }

// UnrealizedPnL returns the summed unrealized P&L of all open positions.
func (p *Portfolio) UnrealizedPnL() float64 {
	var total float64
	for _, pos := range p.positions {
		total += pos.UnrealizedPnL()
	}
	return total
}

// TotalPnL returns realized plus unrealized P&L.
func (p *Portfolio) TotalPnL() float64 {
	return p.realizedPnL + p.UnrealizedPnL()
}

// TotalPnLPercent returns total P&L as a percentage of initial cash, or 0
// when initial cash is zero.
func (p *Portfolio) TotalPnLPercent() float64 {
	if p.initialCash == 0 {
		return 0.0
	}
	return p.TotalPnL() / p.initialCash * 100.0
}

// BuyingPower returns available buying power. With no margin modeled this
// is simply cash.
func (p *Portfolio) BuyingPower() float64 { return p.cash }

// CanAfford reports whether qty shares at price fit within available cash.
func (p *Portfolio) CanAfford(qty int, price float64) bool {
	return p.cash >= float64(qty)*price
}

// ---------------------------------------------------------------------------
// Position queries
// ---------------------------------------------------------------------------

// Position returns a copy of the position for symbol. The second return
// value reports whether a position exists.
func (p *Portfolio) Position(symbol string) (domain.Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// HasPosition reports whether an open (non-zero quantity) position exists
// for symbol.
func (p *Portfolio) HasPosition(symbol string) bool {
	pos, ok := p.positions[symbol]
	return ok && pos.Qty != 0
}

// PositionSize returns the signed quantity held in symbol, or 0 when no
// position exists.
func (p *Portfolio) PositionSize(symbol string) int {
	if pos, ok := p.positions[symbol]; ok {
		return pos.Qty
	}
	return 0
}

// AllPositions returns copies of all open positions, sorted by symbol.
func (p *Portfolio) AllPositions() []domain.Position {
	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		if pos.Qty != 0 {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// ProcessFill applies a fill to the ledger: it updates cash, merges the
// signed fill quantity into the position map, realizes P&L on closes and
// reversals, and appends one trade record.
//
// With Δq = signed fill quantity and q = existing position quantity:
//  1. no position            → open at fill price with quantity Δq
//  2. same sign              → accumulate; avg entry = cost-weighted average
//  3. q+Δq == 0              → realize on |Δq|, delete the position
//  4. |Δq| < |q|, opposite   → realize on |Δq| only; avg entry unchanged
//  5. |Δq| > |q|, opposite   → realize on all of |q|, reopen the remainder
//     in the new direction at the fill price
func (p *Portfolio) ProcessFill(order *domain.Order, fillPrice, commission float64, timestamp time.Time) {
	symbol := order.Symbol
	qty := order.SignedQty()

	if pos, ok := p.positions[symbol]; ok {
		oldQty := pos.Qty

		switch {
		case (oldQty > 0) == (qty > 0):
			// Adding to the existing position.
			totalCost := pos.AvgEntryPrice*absInt(oldQty) + fillPrice*absInt(qty)
			pos.Qty = oldQty + qty
			pos.AvgEntryPrice = totalCost / absInt(pos.Qty)

		case oldQty+qty == 0:
			// Closing the position completely.
			p.realizedPnL += realized(fillPrice, pos.AvgEntryPrice, qty, oldQty < 0)
			delete(p.positions, symbol)

		case absInt(qty) < absInt(oldQty):
			// Partial close.
			p.realizedPnL += realized(fillPrice, pos.AvgEntryPrice, qty, oldQty < 0)
			pos.Qty = oldQty + qty

		default:
			// Reversal: close the whole old position, reopen the excess in
			// the opposite direction at the fill price.
			p.realizedPnL += realized(fillPrice, pos.AvgEntryPrice, oldQty, oldQty < 0)
			pos.Qty = oldQty + qty
			pos.AvgEntryPrice = fillPrice
		}

		if pos, ok := p.positions[symbol]; ok {
			pos.CurrentPrice = fillPrice
		}
	} else {
		p.positions[symbol] = &domain.Position{
			Symbol:        symbol,
			Qty:           qty,
			AvgEntryPrice: fillPrice,
			CurrentPrice:  fillPrice,
		}
	}

	// Cash: buys debit price×qty plus commission, sells credit price×qty
	// minus commission. No margin, no borrow.
	if order.Side == domain.OrderSideBuy {
		p.cash -= fillPrice*float64(order.Qty) + commission
	} else {
		p.cash += fillPrice*float64(order.Qty) - commission
	}

	p.tradeHistory = append(p.tradeHistory, domain.TradeRecord{
		Timestamp:           timestamp,
		Symbol:              symbol,
		Side:                order.Side,
		Qty:                 order.Qty,
		Price:               fillPrice,
		Commission:          commission,
		CashAfter:           p.cash,
		PortfolioValueAfter: p.Value(),
	})
}

// UpdatePositionPrices marks all positions to the given prices. Symbols
// with no entry in prices keep their previous mark. When timestamp is
// non-zero an equity-history point is appended after repricing.
func (p *Portfolio) UpdatePositionPrices(prices map[string]float64, timestamp time.Time) {
	for symbol, pos := range p.positions {
		if price, ok := prices[symbol]; ok {
			pos.CurrentPrice = price
		}
	}
	if !timestamp.IsZero() {
		p.equityHistory = append(p.equityHistory, domain.EquityPoint{
			Timestamp: timestamp,
			Value:     p.Value(),
		})
	}
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// EquityHistory returns the recorded equity curve. The returned slice is
// shared; callers must not modify it.
func (p *Portfolio) EquityHistory() []domain.EquityPoint { return p.equityHistory }

// TradeHistory returns the recorded trade log. The returned slice is
// shared; callers must not modify it.
func (p *Portfolio) TradeHistory() []domain.TradeRecord { return p.tradeHistory }

// Summary is an aggregate snapshot of portfolio state.
type Summary struct {
	Cash           float64
	PositionsValue float64
	PortfolioValue float64
	RealizedPnL    float64
	UnrealizedPnL  float64
	TotalPnL       float64
	TotalPnLPct    float64
	NumPositions   int
	ReturnPercent  float64
}

// Summary returns an aggregate snapshot of the current portfolio state.
func (p *Portfolio) Summary() Summary {
	returnPct := 0.0
	if p.initialCash != 0 {
		returnPct = (p.Value() - p.initialCash) / p.initialCash * 100.0
	}
	return Summary{
		Cash:           p.cash,
		PositionsValue: p.PositionsValue(),
		PortfolioValue: p.Value(),
		RealizedPnL:    p.realizedPnL,
		UnrealizedPnL:  p.UnrealizedPnL(),
		TotalPnL:       p.TotalPnL(),
		TotalPnLPct:    p.TotalPnLPercent(),
		NumPositions:   len(p.AllPositions()),
		ReturnPercent:  returnPct,
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// realized computes the P&L of closing closedQty shares against avgEntry at
// fillPrice. For short positions the sign flips: a price below entry is a
// gain.
func realized(fillPrice, avgEntry float64, closedQty int, wasShort bool) float64 {
	pnl := (fillPrice - avgEntry) * absInt(closedQty)
	if wasShort {
		pnl = -pnl
	}
	return pnl
}

func absInt(q int) float64 {
	if q < 0 {
		return float64(-q)
	}
	return float64(q)
}
