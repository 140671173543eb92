package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/storage/cache"
	"github.com/jeovahfialho/companies-api/pkg/logger"
	"github.com/jeovahfialho/companies-api/pkg/metrics"
)

const (
	PriceCacheKey = "swsCompanyPriceClose"

	// DefaultPriceCacheTTL keeps the snapshot for most of a day; closes are
	// loaded at most once daily.
	DefaultPriceCacheTTL = 80000 * time.Second
)

type PriceStore interface {
	ListPriceCloses(ctx context.Context) ([]domain.PriceRow, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheError reports a failed cache operation. Rows returned alongside it
// came from the store and are complete.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("price cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

type PriceService struct {
	store PriceStore
	cache Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewPriceService(store PriceStore, c Cache, ttl time.Duration) *PriceService {
	if ttl <= 0 {
		ttl = DefaultPriceCacheTTL
	}
	return &PriceService{
		store: store,
		cache: c,
		ttl:   ttl,
	}
}

// GetPrices returns the price snapshot, reading through to the store on a
// miss. A value that no longer decodes is treated as a miss and
// overwritten. When the cache itself fails the store is still read and its
// rows are returned together with a *CacheError.
func (s *PriceService) GetPrices(ctx context.Context) ([]domain.PriceRow, error) {
	var cached []domain.PriceRow
	err := s.cache.Get(ctx, PriceCacheKey, &cached)

	switch {
	case err == nil:
		metrics.RecordCacheHit()
		return cached, nil

	case errors.Is(err, cache.ErrCacheMiss):
		metrics.RecordCacheMiss()
		return s.load(ctx)

	case errors.Is(err, cache.ErrCorruptValue):
		metrics.RecordCacheError("decode")
		logger.Warn("price snapshot unreadable, reloading", zap.Error(err))
		return s.load(ctx)

	default:
		metrics.RecordCacheError("get")
		getErr := &CacheError{Op: "get", Key: PriceCacheKey, Err: err}

		rows, storeErr := s.store.ListPriceCloses(ctx)
		if storeErr != nil {
			return nil, errors.Join(getErr, fmt.Errorf("load price closes: %w", storeErr))
		}
		return rows, getErr
	}
}

// Refresh reloads the snapshot from the store and overwrites the cache
// entry, independent of what is cached now.
func (s *PriceService) Refresh(ctx context.Context) ([]domain.PriceRow, error) {
	return s.refresh(ctx)
}

func (s *PriceService) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, PriceCacheKey); err != nil {
		metrics.RecordCacheError("delete")
		return &CacheError{Op: "delete", Key: PriceCacheKey, Err: err}
	}
	return nil
}

// load collapses concurrent misses in this process into one store read.
func (s *PriceService) load(ctx context.Context) ([]domain.PriceRow, error) {
	v, err, shared := s.sf.Do(PriceCacheKey, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		logger.Debug("price snapshot load shared", zap.Error(err))
	}

	rows, _ := v.([]domain.PriceRow)
	return rows, err
}

func (s *PriceService) refresh(ctx context.Context) ([]domain.PriceRow, error) {
	rows, err := s.store.ListPriceCloses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price closes: %w", err)
	}

	if err := s.cache.Set(ctx, PriceCacheKey, rows, s.ttl); err != nil {
		metrics.RecordCacheError("set")
		return rows, &CacheError{Op: "set", Key: PriceCacheKey, Err: err}
	}

	logger.Info("price snapshot cached",
		zap.Int("rows", len(rows)),
		zap.Duration("ttl", s.ttl))

	return rows, nil
}
