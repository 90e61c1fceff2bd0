// Package strategy defines the Strategy interface for trading strategies,
// the Context they trade through, and a Registry for managing multiple
// strategy implementations. The same strategy code runs unchanged in
// backtest and live contexts because it only ever touches the Context.
package strategy

import (
	"sort"

	"github.com/MalteJ/paperhands/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
// The engine calls the hooks in a fixed order: OnStart once, OnBar once
// per (symbol, timestamp) pair in lexicographic symbol order, OnFill once
// per fill in submission order, and OnStop once at the end.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// OnStart is called once before the first bar.
	OnStart(c *Context) error

	// OnBar is called for each new OHLCV bar.
	OnBar(c *Context, bar domain.Bar) error

	// OnFill is called when an order fills.
	OnFill(c *Context, fill domain.Fill) error

	// OnStop is called once after the last bar.
	OnStop(c *Context) error
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
