// Package data defines the DataProvider contract for historical bars and
// provides implementations: the Alpaca market-data client, a Parquet
// read-through cache, and an in-memory static provider.
package data

import (
	"context"
	"sort"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"
)

// Provider supplies historical bars. Implementations must return bars in
// ascending timestamp order covering the symbol's available trading
// calendar within [start, end]; per-symbol gaps are permitted and the
// engine handles them.
type Provider interface {
	// GetBars returns bars for one symbol within [start, end] at the given
	// timeframe label (e.g. "1Day", "1Hour").
	GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]domain.Bar, error)

	// GetBarsMulti returns bars for several symbols within [start, end],
	// keyed by symbol. Symbols with no data in range are simply absent.
	GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, timeframe string) (map[string][]domain.Bar, error)

	// GetLatestBar returns the most recent bar available for symbol. The
	// second return value reports whether one exists.
	GetLatestBar(ctx context.Context, symbol string) (domain.Bar, bool, error)
}

// Compile-time interface check.
var _ Provider = (*StaticProvider)(nil)

// StaticProvider serves bars from memory. It backs tests and example runs
// that do not need a network or disk data source.
type StaticProvider struct {
	bars map[string][]domain.Bar
}

// NewStaticProvider creates a StaticProvider over the given bars, keyed by
// symbol. Bars are sorted by timestamp on ingest.
func NewStaticProvider(bars map[string][]domain.Bar) *StaticProvider {
	sorted := make(map[string][]domain.Bar, len(bars))
	for symbol, bs := range bars {
		cp := make([]domain.Bar, len(bs))
		copy(cp, bs)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
		sorted[symbol] = cp
	}
	return &StaticProvider{bars: sorted}
}

// GetBars returns the in-range bars for symbol.
func (p *StaticProvider) GetBars(_ context.Context, symbol string, start, end time.Time, _ string) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range p.bars[symbol] {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetBarsMulti returns the in-range bars for every requested symbol.
func (p *StaticProvider) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, timeframe string) (map[string][]domain.Bar, error) {
	out := make(map[string][]domain.Bar, len(symbols))
	for _, symbol := range symbols {
		bars, err := p.GetBars(ctx, symbol, start, end, timeframe)
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			out[symbol] = bars
		}
	}
	return out, nil
}

// GetLatestBar returns the last bar held for symbol.
func (p *StaticProvider) GetLatestBar(_ context.Context, symbol string) (domain.Bar, bool, error) {
	bs := p.bars[symbol]
	if len(bs) == 0 {
		return domain.Bar{}, false, nil
	}
	return bs[len(bs)-1], true, nil
}
