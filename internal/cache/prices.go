package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/marketdata"
	"github.com/Alias1177/Allocator/internal/model"
)

// PriceCache is a read-through Redis cache in front of a SeriesFetcher.
// Redis failures are logged and never fail the fetch.
type PriceCache struct {
	client  redis.Cmdable
	fetcher marketdata.SeriesFetcher
	ttl     time.Duration
	logger  zerolog.Logger
}

// cachedPoint stores gaps as null, which JSON cannot express as NaN
type cachedPoint struct {
	Date  string   `json:"d"`
	Close *float64 `json:"c"`
}

// NewPriceCache wraps fetcher with a cache. ttl 0 keeps entries forever.
func NewPriceCache(client redis.Cmdable, fetcher marketdata.SeriesFetcher, ttl time.Duration) *PriceCache {
	return &PriceCache{
		client:  client,
		fetcher: fetcher,
		ttl:     ttl,
		logger:  log.With().Str("component", "price_cache").Logger(),
	}
}

// Connect creates a Redis client from a URL such as redis://localhost:6379/0 and pings it
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Key returns the cache key of one ticker history
func Key(ticker string, start, end time.Time) string {
	return fmt.Sprintf("prices:%s:%s:%s", ticker, start.Format(model.DateLayout), end.Format(model.DateLayout))
}

// FetchDaily serves the history from Redis, fetching and storing it on a miss
func (c *PriceCache) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]model.PricePoint, error) {
	key := Key(ticker, start, end)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		points, decodeErr := decode(val)
		if decodeErr == nil {
			c.logger.Debug().Str("key", key).Int("count", len(points)).Msg("Cache hit")
			return points, nil
		}
		c.logger.Warn().Err(decodeErr).Str("key", key).Msg("Discarding corrupt cache entry")
	case err == redis.Nil:
		c.logger.Debug().Str("key", key).Msg("Cache miss")
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	points, err := c.fetcher.FetchDaily(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return points, nil
	}

	data, err := encode(points)
	if err != nil {
		return nil, fmt.Errorf("encoding %s prices: %w", ticker, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return points, nil
}

func encode(points []model.PricePoint) (string, error) {
	out := make([]cachedPoint, len(points))
	for i, p := range points {
		out[i].Date = p.Date.Format(model.DateLayout)
		if !math.IsNaN(p.Close) {
			v := p.Close
			out[i].Close = &v
		}
	}
	data, err := json.Marshal(out)
	return string(data), err
}

func decode(val string) ([]model.PricePoint, error) {
	var in []cachedPoint
	if err := json.Unmarshal([]byte(val), &in); err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, len(in))
	for i, p := range in {
		d, err := time.Parse(model.DateLayout, p.Date)
		if err != nil {
			return nil, err
		}
		points[i] = model.PricePoint{Date: d, Close: math.NaN()}
		if p.Close != nil {
			points[i].Close = *p.Close
		}
	}
	return points, nil
}
