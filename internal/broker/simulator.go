package broker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/portfolio"
)

// Compile-time interface check.
var _ Broker = (*Simulator)(nil)

// Simulator matches orders against replayed bars. On each bar it decides
// which open orders fill and at what price, applies slippage and
// commission, pushes the fill into the portfolio, and queues a fill event
// for dispatch-once delivery.
//
// Fills are all-or-nothing per bar; partial fills are not modeled.
type Simulator struct {
	portfolio          *portfolio.Portfolio
	commissionPerShare float64
	slippagePercent    float64

	orders     map[string]*domain.Order
	openOrders []*domain.Order
	fillEvents []domain.Fill

	// While trading is disabled (warmup) no order fills and submissions
	// are rejected.
	tradingEnabled bool

	log *slog.Logger
}

// NewSimulator creates a Simulator writing fills into the given portfolio.
// Commission is charged per share; slippage is a percentage applied
// adversely to every fill price.
func NewSimulator(p *portfolio.Portfolio, commissionPerShare, slippagePercent float64) *Simulator {
	return &Simulator{
		portfolio:          p,
		commissionPerShare: commissionPerShare,
		slippagePercent:    slippagePercent,
		orders:             make(map[string]*domain.Order),
		tradingEnabled:     true,
		log:                slog.Default().With("component", "simulator"),
	}
}

// Name returns "simulator".
func (s *Simulator) Name() string { return "simulator" }

// SetTradingEnabled toggles order matching. The engine disables trading
// during warmup so that warmup bars cannot produce fills.
func (s *Simulator) SetTradingEnabled(enabled bool) {
	s.tradingEnabled = enabled
}

// SubmitOrder assigns an ID, marks the order submitted, and adds it to the
// open-order set. While trading is disabled the order is rejected instead.
func (s *Simulator) SubmitOrder(order *domain.Order) (*domain.Order, error) {
	if !s.tradingEnabled {
		order.Status = domain.OrderStatusRejected
		return nil, fmt.Errorf("trading disabled: rejecting %s order for %s", order.Side, order.Symbol)
	}

	order.ID = uuid.NewString()
	order.Status = domain.OrderStatusSubmitted
	order.SubmittedAt = time.Now()

	s.orders[order.ID] = order
	s.openOrders = append(s.openOrders, order)
	return order, nil
}

// CancelOrder cancels an open order. It returns false when the order does
// not exist or is already terminal.
func (s *Simulator) CancelOrder(orderID string) bool {
	order, ok := s.orders[orderID]
	if !ok {
		return false
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusSubmitted {
		return false
	}

	order.Status = domain.OrderStatusCanceled
	s.removeOpen(order)
	return true
}

// GetOrder returns the order with the given ID.
func (s *Simulator) GetOrder(orderID string) (*domain.Order, bool) {
	o, ok := s.orders[orderID]
	return o, ok
}

// OpenOrders returns a copy of the open-order set.
func (s *Simulator) OpenOrders() []*domain.Order {
	out := make([]*domain.Order, len(s.openOrders))
	copy(out, s.openOrders)
	return out
}

// FillEvents returns and clears the queued fills. No fill is ever
// delivered twice.
func (s *Simulator) FillEvents() []domain.Fill {
	events := s.fillEvents
	s.fillEvents = nil
	return events
}

// ProcessBar evaluates every open order for symbol against the bar's
// O/H/L/C and executes the ones that match. Fill rules (no intrabar path
// is known, so gaps through the trigger fill at the better of trigger and
// open):
//
//   - market:     fills at open
//   - limit buy:  fills iff low ≤ limit, at min(limit, open)
//   - limit sell: fills iff high ≥ limit, at max(limit, open)
//   - stop buy:   fills iff high ≥ stop, at max(stop, open)
//   - stop sell:  fills iff low ≤ stop, at min(stop, open)
//   - stop-limit: triggers like a stop, then fills like a limit on the
//     same bar; untriggered or unfillable orders stay open
//
// Orders for other symbols are untouched and re-evaluated on their own
// symbol's next bar. While trading is disabled nothing fills.
func (s *Simulator) ProcessBar(symbol string, open, high, low, close float64, timestamp time.Time) {
	if !s.tradingEnabled {
		return
	}

	var remaining []*domain.Order
	for _, order := range s.openOrders {
		if order.Symbol != symbol {
			remaining = append(remaining, order)
			continue
		}

		fillPrice, filled := matchOrder(order, open, high, low)
		if !filled {
			remaining = append(remaining, order)
			continue
		}

		s.executeFill(order, fillPrice, timestamp)
	}
	s.openOrders = remaining
}

// matchOrder applies the fill rules for a single order against one bar,
// returning the raw fill price (before slippage) and whether it fills.
func matchOrder(order *domain.Order, open, high, low float64) (float64, bool) {
	switch order.Type {
	case domain.OrderTypeMarket:
		return open, true

	case domain.OrderTypeLimit:
		return matchLimit(order.Side, order.LimitPrice, open, high, low)

	case domain.OrderTypeStop:
		if order.Side == domain.OrderSideBuy {
			if high >= order.StopPrice {
				return max(order.StopPrice, open), true
			}
		} else {
			if low <= order.StopPrice {
				return min(order.StopPrice, open), true
			}
		}

	case domain.OrderTypeStopLimit:
		// Stop leg first; once triggered the limit leg is evaluated
		// against the same bar.
		triggered := (order.Side == domain.OrderSideBuy && high >= order.StopPrice) ||
			(order.Side == domain.OrderSideSell && low <= order.StopPrice)
		if triggered {
			return matchLimit(order.Side, order.LimitPrice, open, high, low)
		}
	}
	return 0, false
}

func matchLimit(side domain.OrderSide, limit, open, high, low float64) (float64, bool) {
	if side == domain.OrderSideBuy {
		if low <= limit {
			return min(limit, open), true
		}
	} else {
		if high >= limit {
			return max(limit, open), true
		}
	}
	return 0, false
}

// executeFill applies slippage and commission, finalizes the order, updates
// the portfolio, and queues the fill event.
func (s *Simulator) executeFill(order *domain.Order, fillPrice float64, timestamp time.Time) {
	if s.slippagePercent > 0 {
		slip := fillPrice * s.slippagePercent / 100.0
		if order.Side == domain.OrderSideBuy {
			fillPrice += slip
		} else {
			fillPrice -= slip
		}
	}
	commission := float64(order.Qty) * s.commissionPerShare

	order.Status = domain.OrderStatusFilled
	order.FilledAt = timestamp
	order.FilledQty = order.Qty
	order.FilledAvgPrice = fillPrice

	s.portfolio.ProcessFill(order, fillPrice, commission, timestamp)

	s.fillEvents = append(s.fillEvents, domain.Fill{
		Order:      order,
		Price:      fillPrice,
		Qty:        order.Qty,
		Timestamp:  timestamp,
		Commission: commission,
	})

	s.log.Debug("order filled",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", order.Qty,
		"price", fillPrice,
		"commission", commission,
	)
}

func (s *Simulator) removeOpen(order *domain.Order) {
	for i, o := range s.openOrders {
		if o.ID == order.ID {
			s.openOrders = append(s.openOrders[:i], s.openOrders[i+1:]...)
			return
		}
	}
}
