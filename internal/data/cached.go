package data

import (
	"context"
	"log/slog"
	"time"

	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/store"
)

// Compile-time interface check.
var _ Provider = (*CachedProvider)(nil)

// CachedProvider is a read-through bar cache around another Provider.
// Symbols already covered on disk are served from the store; misses are
// fetched from the upstream provider and written back, so repeated
// backtests over the same range run offline.
type CachedProvider struct {
	upstream Provider
	cache    store.BarStore
	log      *slog.Logger
}

// NewCachedProvider wraps upstream with the given bar store.
func NewCachedProvider(upstream Provider, cache store.BarStore) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		log:      slog.Default().With("provider", "cached"),
	}
}

// GetBars serves from the cache when possible, fetching and caching on miss.
func (p *CachedProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]domain.Bar, error) {
	cached, err := p.cache.ReadBars(ctx, symbol, timeframe, start, end)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}

	bars, err := p.upstream.GetBars(ctx, symbol, start, end, timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if werr := p.cache.WriteBars(ctx, bars, timeframe); werr != nil {
			// A failed cache write degrades to uncached operation.
			p.log.Warn("caching bars failed", "symbol", symbol, "err", werr)
		}
	}
	return bars, nil
}

// GetBarsMulti serves each symbol from the cache, batching the misses into
// one upstream call.
func (p *CachedProvider) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, timeframe string) (map[string][]domain.Bar, error) {
	out := make(map[string][]domain.Bar, len(symbols))
	var misses []string

	for _, symbol := range symbols {
		cached, err := p.cache.ReadBars(ctx, symbol, timeframe, start, end)
		if err == nil && len(cached) > 0 {
			out[symbol] = cached
			continue
		}
		misses = append(misses, symbol)
	}

	if len(misses) > 0 {
		fetched, err := p.upstream.GetBarsMulti(ctx, misses, start, end, timeframe)
		if err != nil {
			return nil, err
		}
		for symbol, bars := range fetched {
			out[symbol] = bars
			if werr := p.cache.WriteBars(ctx, bars, timeframe); werr != nil {
				p.log.Warn("caching bars failed", "symbol", symbol, "err", werr)
			}
		}
	}

	p.log.Debug("bars resolved",
		"requested", len(symbols),
		"cache_hits", len(symbols)-len(misses),
		"fetched", len(misses),
	)
	return out, nil
}

// GetLatestBar always defers to the upstream provider; "latest" is a
// moving target the cache cannot answer.
func (p *CachedProvider) GetLatestBar(ctx context.Context, symbol string) (domain.Bar, bool, error) {
	return p.upstream.GetLatestBar(ctx, symbol)
}
