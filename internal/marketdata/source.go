package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/portfolio"
)

// PriceSource provides the adjusted close table for a set of tickers
type PriceSource interface {
	FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceSeries, error)
}

// SeriesFetcher fetches the daily adjusted close history of a single ticker
type SeriesFetcher interface {
	FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]model.PricePoint, error)
}

// Collector builds a price table by fetching every ticker through a SeriesFetcher
type Collector struct {
	fetcher SeriesFetcher
	logger  zerolog.Logger
}

// NewCollector creates a collector on top of fetcher
func NewCollector(fetcher SeriesFetcher) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  log.With().Str("component", "collector").Logger(),
	}
}

// FetchPrices fetches each ticker in order and merges them on the union of dates.
// A ticker without a single observation is reported as missing.
func (c *Collector) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*model.PriceSeries, error) {
	points := make(map[string][]model.PricePoint, len(tickers))
	for _, t := range tickers {
		series, err := c.fetcher.FetchDaily(ctx, t, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", t, err)
		}
		if len(series) == 0 {
			c.logger.Error().Str("ticker", t).Msg("No price data returned")
			return nil, &portfolio.MissingTickerError{Ticker: t}
		}
		points[t] = series
	}

	prices := model.MergePoints(tickers, points)
	c.logger.Debug().Int("rows", prices.Len()).Int("tickers", len(tickers)).Msg("Merged price table")
	return prices, nil
}
