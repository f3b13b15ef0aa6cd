// Package provider retrieves bar series from named market-data sources
// and caches them across runs.
//
// A Source yields ascending, validated bar series. The orchestrator
// treats every source error as recoverable: the failing ticker becomes a
// report issue and the run moves on.
package provider

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmarsden/scanpulse/config"
	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

// Source fetches price history for one ticker at a time.
type Source interface {
	Name() string

	// Daily returns daily bars dated within [start, end], ascending.
	Daily(ctx context.Context, ticker string, start, end time.Time) (models.BarSeries, error)

	// Intraday returns bars for one trading day at the given interval
	// (e.g. "5m"), ascending. Sources without intraday data return an
	// error.
	Intraday(ctx context.Context, ticker string, day time.Time, interval string) (models.BarSeries, error)
}

// New builds the named source from the loaded application config,
// wrapped in the tiered cache unless caching is disabled.
func New(name string, cached bool) (Source, error) {
	var src Source
	switch name {
	case SourceEODHD:
		if config.AppConfig.Provider.EODHDToken == "" {
			return nil, scanerr.Configf("provider", "EODHD_API_TOKEN not set")
		}
		src = NewEODHD(config.AppConfig.Provider.EODHDToken,
			WithBaseURL(config.AppConfig.Provider.EODHDBaseURL))
	case SourceCSVDir:
		src = NewCSVDir(config.AppConfig.Provider.CSVDir)
	default:
		return nil, scanerr.Configf("provider", "unknown provider %q", name)
	}

	if !cached {
		return src, nil
	}

	opts := []CacheOption{}
	if addr := config.AppConfig.Redis.Addr; addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
		opts = append(opts, WithRedis(rdb, time.Duration(config.AppConfig.Redis.TTLHours)*time.Hour))
	}
	return NewTieredCache(src, config.AppConfig.Paths.CacheDir, opts...), nil
}
