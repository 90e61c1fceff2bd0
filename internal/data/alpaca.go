package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/MalteJ/paperhands/internal/domain"
	"github.com/MalteJ/paperhands/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider serves historical bars from the Alpaca market-data API.
// Requests are rate limited and retried with backoff.
type AlpacaProvider struct {
	client  *marketdata.Client
	feed    marketdata.Feed
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL and feed may be empty to use the API defaults; ratePerMin bounds
// outgoing requests.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string, ratePerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	if ratePerMin <= 0 {
		ratePerMin = 200
	}

	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		feed:    marketdata.Feed(feed),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// GetBars returns bars for one symbol within [start, end].
func (p *AlpacaProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]domain.Bar, error) {
	multi, err := p.GetBarsMulti(ctx, []string{symbol}, start, end, timeframe)
	if err != nil {
		return nil, err
	}
	return multi[strings.ToUpper(symbol)], nil
}

// GetBarsMulti fetches bars for several symbols in a single API call.
func (p *AlpacaProvider) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, timeframe string) (map[string][]domain.Bar, error) {
	tf, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var multiBars map[string][]marketdata.Bar
	err = util.Retry(ctx, 3, time.Second, func() error {
		var reqErr error
		multiBars, reqErr = p.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
			Feed:      p.feed,
		})
		return reqErr
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	out := make(map[string][]domain.Bar, len(multiBars))
	for symbol, alpacaBars := range multiBars {
		bars := make([]domain.Bar, 0, len(alpacaBars))
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    int64(ab.Volume),
			})
		}
		if len(bars) > 0 {
			out[strings.ToUpper(symbol)] = bars
		}
	}

	p.log.Debug("fetched bars",
		"symbols", len(symbols),
		"hit", len(out),
		"timeframe", timeframe,
	)
	return out, nil
}

// GetLatestBar returns the most recent daily bar within the last week.
func (p *AlpacaProvider) GetLatestBar(ctx context.Context, symbol string) (domain.Bar, bool, error) {
	end := time.Now()
	bars, err := p.GetBars(ctx, symbol, end.AddDate(0, 0, -7), end, "1Day")
	if err != nil {
		return domain.Bar{}, false, err
	}
	if len(bars) == 0 {
		return domain.Bar{}, false, nil
	}
	return bars[len(bars)-1], true, nil
}

// parseTimeframe maps a timeframe label to the Alpaca TimeFrame.
func parseTimeframe(timeframe string) (marketdata.TimeFrame, error) {
	switch timeframe {
	case "", "1Day":
		return marketdata.OneDay, nil
	case "1Hour":
		return marketdata.OneHour, nil
	case "1Min":
		return marketdata.OneMin, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}
