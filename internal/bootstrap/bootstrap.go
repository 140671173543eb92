package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeovahfialho/companies-api/internal/config"
	"github.com/jeovahfialho/companies-api/internal/query"
	"github.com/jeovahfialho/companies-api/internal/service"
	"github.com/jeovahfialho/companies-api/internal/storage/cache"
	"github.com/jeovahfialho/companies-api/internal/storage/postgres"
	"github.com/jeovahfialho/companies-api/pkg/logger"
)

// Deps holds the connected stores and the services built on them.
type Deps struct {
	DB        *postgres.DB
	Cache     *cache.RedisCache
	Prices    *service.PriceService
	Companies *service.CompanyService
}

func (d *Deps) Close() {
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// Open connects to Postgres and Redis, retrying each per the startup
// settings, and wires the services. Either dependency being unreachable
// after the last attempt is an error; nothing is left open in that case.
func Open(ctx context.Context, cfg *config.Config) (*Deps, error) {
	var deps Deps

	err := Retry(ctx, "postgres", cfg.StartupAttempts, cfg.StartupBackoff, func(ctx context.Context) error {
		db, err := postgres.NewDB(ctx, postgres.Options{
			URL:         cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
			MaxConnLife: cfg.DatabaseMaxConnLife,
			LogQueries:  cfg.DatabaseLogQueries,
			Logger:      logger.Log,
		})
		if err != nil {
			return err
		}
		deps.DB = db
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = Retry(ctx, "redis", cfg.StartupAttempts, cfg.StartupBackoff, func(ctx context.Context) error {
		c, err := cache.NewRedisCache(ctx, cache.Options{
			URL:        cfg.RedisURL,
			DefaultTTL: cfg.PriceCacheTTL,
		})
		if err != nil {
			return err
		}
		deps.Cache = c
		return nil
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	repo := postgres.NewCompanyRepository(deps.DB.Pool())
	deps.Prices = service.NewPriceService(repo, deps.Cache, cfg.PriceCacheTTL)
	deps.Companies = service.NewCompanyService(repo, deps.Prices, service.CompanyServiceOptions{
		Query: query.Options{
			ReferenceDate: cfg.FluctuationReferenceDate,
			WindowDays:    cfg.FluctuationWindowDays,
		},
		CacheFailOpen: cfg.CacheFailOpen,
	})

	return &deps, nil
}

// Retry calls fn up to attempts times, doubling the wait after each
// failure starting from backoff. It returns the last error.
func Retry(ctx context.Context, name string, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	wait := backoff
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("connected after retry", zap.String("dependency", name), zap.Int("attempt", attempt))
			}
			return nil
		}

		if attempt == attempts {
			break
		}

		logger.Warn("dependency not ready, retrying",
			zap.String("dependency", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect %s: %w", name, ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}

	return fmt.Errorf("connect %s after %d attempts: %w", name, attempts, err)
}
