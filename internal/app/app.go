// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"spp-forecast/internal/config"
	"spp-forecast/internal/ercot"
	"spp-forecast/internal/fetch"
	"spp-forecast/internal/metrics"
	"spp-forecast/internal/service"
)

// App is a fully wired service plus the resources it holds.
type App struct {
	Service *service.Service
	Catalog *ercot.Catalog
	Metrics *metrics.Recorder

	closers []func() error
}

// Build wires the upstream clients, optional page cache and forecast service.
// reg may be nil, in which case nothing is recorded.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	var fetchOpts []fetch.Option
	var tokenOpts []ercot.TokenOption
	var svcOpts []service.Option
	if reg != nil {
		a.Metrics = metrics.New(reg)
		fetchOpts = append(fetchOpts, fetch.WithObserver(a.Metrics))
		tokenOpts = append(tokenOpts, ercot.WithTokenObserver(a.Metrics))
		svcOpts = append(svcOpts, service.WithObserver(a.Metrics))
	}

	fetchOpts = append(fetchOpts,
		fetch.WithLogger(log.With().Str("component", "fetch").Logger()),
		fetch.WithRateLimit(cfg.ERCOT.RequestsPerSecond, cfg.ERCOT.Burst),
	)
	httpc := fetch.New(fetchOpts...)

	settings := cfg.ERCOT.Settings()
	tokenOpts = append(tokenOpts, ercot.WithTokenLogger(log.With().Str("component", "token").Logger()))
	tokens := ercot.NewTokenCache(httpc, settings, tokenOpts...)

	clientOpts := []ercot.ClientOption{ercot.WithClientLogger(log.With().Str("component", "ercot").Logger())}
	pageCache, err := a.pageCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, err
	}
	if pageCache != nil {
		clientOpts = append(clientOpts, ercot.WithPageCache(pageCache))
	}
	if cfg.ERCOT.Breaker.Enabled {
		clientOpts = append(clientOpts, ercot.WithBreaker(ercot.BreakerSettings{
			ConsecutiveFailures: cfg.ERCOT.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.ERCOT.Breaker.OpenTimeout,
		}))
	}
	client := ercot.NewClient(httpc, tokens, settings, clientOpts...)

	svcOpts = append(svcOpts, service.WithLogger(log.With().Str("component", "service").Logger()))
	svc, err := service.New(client, cfg.Forecast.Options(), svcOpts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build service: %w", err)
	}
	a.Service = svc

	catalog, err := ercot.LoadCatalogOrDefault(cfg.CatalogFile)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load settlement points: %w", err)
	}
	a.Catalog = catalog

	return a, nil
}

func (a *App) pageCache(ctx context.Context, cc config.CacheConfig, log zerolog.Logger) (ercot.PageCache, error) {
	switch cc.Backend {
	case "memory":
		mc := ercot.NewMemoryPageCache(cc.TTL, time.Minute)
		a.closers = append(a.closers, func() error { mc.Close(); return nil })
		log.Info().Dur("ttl", cc.TTL).Msg("page cache: memory")
		return mc, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cc.RedisAddr, err)
		}
		a.closers = append(a.closers, rdb.Close)
		log.Info().Str("addr", cc.RedisAddr).Dur("ttl", cc.TTL).Msg("page cache: redis")
		return ercot.NewRedisPageCache(rdb, cc.TTL), nil
	default:
		return nil, nil
	}
}

// Close releases the page cache.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
