package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/logger"
)

// TieredCache wraps a Source with a read-through, write-through cache:
// an optional Redis fast tier in front of an on-disk durable tier.
//
// Lookups go fast tier, durable tier, then the source; fills propagate
// back up. Redis being down is never an error, only a slower lookup.
// Entries are keyed by (source, ticker, interval, window), so a repeated
// backfill over the same window never refetches.
type TieredCache struct {
	src Source
	dir string
	rdb *redis.Client
	ttl time.Duration
}

// CacheOption configures the cache.
type CacheOption func(*TieredCache)

// WithRedis enables the fast tier with the given TTL.
func WithRedis(rdb *redis.Client, ttl time.Duration) CacheOption {
	return func(c *TieredCache) {
		c.rdb = rdb
		c.ttl = ttl
	}
}

// NewTieredCache wraps src with caching under dir.
func NewTieredCache(src Source, dir string, opts ...CacheOption) *TieredCache {
	c := &TieredCache{src: src, dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name reports the wrapped source's name; the cache is transparent.
func (c *TieredCache) Name() string { return c.src.Name() }

func (c *TieredCache) Daily(ctx context.Context, ticker string, start, end time.Time) (models.BarSeries, error) {
	key := fmt.Sprintf("%s_1d_%s_%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	return c.fetch(ctx, key, func() (models.BarSeries, error) {
		return c.src.Daily(ctx, ticker, start, end)
	})
}

func (c *TieredCache) Intraday(ctx context.Context, ticker string, day time.Time, interval string) (models.BarSeries, error) {
	key := fmt.Sprintf("%s_%s_%s", ticker, interval, day.Format("2006-01-02"))
	return c.fetch(ctx, key, func() (models.BarSeries, error) {
		return c.src.Intraday(ctx, ticker, day, interval)
	})
}

func (c *TieredCache) fetch(ctx context.Context, key string, load func() (models.BarSeries, error)) (models.BarSeries, error) {
	if series, ok := c.fromRedis(ctx, key); ok {
		return series, nil
	}
	if series, ok := c.fromFile(key); ok {
		c.toRedis(ctx, key, series)
		return series, nil
	}

	series, err := load()
	if err != nil {
		return models.BarSeries{}, err
	}
	c.toFile(key, series)
	c.toRedis(ctx, key, series)
	return series, nil
}

func (c *TieredCache) redisKey(key string) string {
	return fmt.Sprintf("bars:%s:%s", c.src.Name(), key)
}

func (c *TieredCache) fromRedis(ctx context.Context, key string) (models.BarSeries, bool) {
	if c.rdb == nil {
		return models.BarSeries{}, false
	}
	raw, err := c.rdb.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.With("barcache").Debug().Err(err).Msg("redis get failed")
		}
		return models.BarSeries{}, false
	}
	var series models.BarSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return models.BarSeries{}, false
	}
	return series, true
}

func (c *TieredCache) toRedis(ctx context.Context, key string, series models.BarSeries) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.redisKey(key), raw, c.ttl).Err(); err != nil {
		logger.With("barcache").Debug().Err(err).Msg("redis set failed")
	}
}

func (c *TieredCache) filePath(key string) string {
	return filepath.Join(c.dir, c.src.Name(), key+".json")
}

func (c *TieredCache) fromFile(key string) (models.BarSeries, bool) {
	raw, err := os.ReadFile(c.filePath(key))
	if err != nil {
		return models.BarSeries{}, false
	}
	var series models.BarSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		// Corrupt entry: treat as a miss and let the refill replace it.
		return models.BarSeries{}, false
	}
	return series, true
}

func (c *TieredCache) toFile(key string, series models.BarSeries) {
	path := c.filePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.With("barcache").Warn().Err(err).Msg("cache dir create failed")
		return
	}
	raw, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		logger.With("barcache").Warn().Err(err).Str("path", path).Msg("cache write failed")
	}
}
