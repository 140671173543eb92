package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/query"
	"github.com/jeovahfialho/companies-api/internal/storage/cache"
)

func samplePrices() []domain.PriceRow {
	return []domain.PriceRow{
		{CompanyID: "apt", Date: "2020-05-20", Price: decimal.RequireFromString("140")},
		{CompanyID: "apt", Date: "2020-05-21", Price: decimal.RequireFromString("145")},
		{CompanyID: "bhp", Date: "2020-05-21", Price: decimal.RequireFromString("30")},
	}
}

type countingStore struct {
	calls   atomic.Int32
	rows    []domain.PriceRow
	err     error
	release chan struct{}
}

func (s *countingStore) ListPriceCloses(ctx context.Context) ([]domain.PriceRow, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	sets   int
}

func newMemCache() *memCache {
	return &memCache{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Join(cache.ErrCorruptValue, err)
	}
	return nil
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	if len(ttl) > 0 {
		c.ttls[key] = ttl[0]
	}
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

type fakePrices struct {
	calls int
	rows  []domain.PriceRow
	err   error
}

func (p *fakePrices) GetPrices(ctx context.Context) ([]domain.PriceRow, error) {
	p.calls++
	return p.rows, p.err
}

type fakeCompanyStore struct {
	last      *query.CompanyQuery
	companies []domain.Company
	err       error
}

func (s *fakeCompanyStore) QueryCompanies(ctx context.Context, q *query.CompanyQuery) ([]domain.Company, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}
