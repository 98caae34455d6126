package s0_data

import (
	"context"
	"time"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/metrics"
	"github.com/wonny/etfmomo/pkg/redis"
)

// CachedFetcher serves histories from Redis and falls through to the wrapped
// fetcher on a miss. Cache failures are logged and never fail the fetch.
type CachedFetcher struct {
	next    BarFetcher
	cache   *redis.Cache
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewCachedFetcher wraps next with a history cache
func NewCachedFetcher(next BarFetcher, cache *redis.Cache, ttl time.Duration, reg *metrics.Registry, log *logger.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, metrics: reg, logger: log}
}

// FetchDaily implements BarFetcher
func (c *CachedFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	key := redis.HistoryKey(symbol, from, to)

	var bars []contracts.Bar
	hit, err := c.cache.Get(ctx, key, &bars)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("History cache read failed")
	}
	if hit {
		c.metrics.RecordCache(true)
		return bars, nil
	}
	c.metrics.RecordCache(false)

	bars, err = c.next.FetchDaily(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if len(bars) > 0 {
		if err := c.cache.Set(ctx, key, bars, c.ttl); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("History cache write failed")
		}
	}
	return bars, nil
}
