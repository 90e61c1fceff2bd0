// Package broker defines the Broker interface for order execution and
// provides the bar-replay order-matching simulator used in backtests.
package broker

import (
	"github.com/MalteJ/paperhands/internal/domain"
)

// Broker abstracts order execution and open-order management. Strategies
// interact with it only through their context; the engine drives fills.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator").
	Name() string

	// SubmitOrder accepts an order for execution, assigns it an ID, and
	// moves it to the submitted state.
	SubmitOrder(order *domain.Order) (*domain.Order, error)

	// CancelOrder cancels an open order by ID. It returns true only when
	// the order existed and was still cancellable; canceling an already
	// terminal order is not an error, it simply returns false.
	CancelOrder(orderID string) bool

	// GetOrder returns the order with the given ID.
	GetOrder(orderID string) (*domain.Order, bool)

	// OpenOrders returns a copy of the currently open (working) orders.
	OpenOrders() []*domain.Order

	// FillEvents returns and clears the fills accumulated since the last
	// call. Every fill is delivered exactly once.
	FillEvents() []domain.Fill
}
