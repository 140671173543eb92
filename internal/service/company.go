package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/query"
	"github.com/jeovahfialho/companies-api/pkg/logger"
)

type CompanyStore interface {
	QueryCompanies(ctx context.Context, q *query.CompanyQuery) ([]domain.Company, error)
}

type PriceProvider interface {
	GetPrices(ctx context.Context) ([]domain.PriceRow, error)
}

type CompanyServiceOptions struct {
	Query query.Options
	// CacheFailOpen serves store rows when only the price cache failed.
	// When false, any cache failure fails the request.
	CacheFailOpen bool
}

type CompanyService struct {
	store  CompanyStore
	prices PriceProvider
	opts   CompanyServiceOptions
}

func NewCompanyService(store CompanyStore, prices PriceProvider, opts CompanyServiceOptions) *CompanyService {
	if opts.Query.ReferenceDate == "" || opts.Query.WindowDays <= 0 {
		opts.Query = query.DefaultOptions()
	}
	return &CompanyService{
		store:  store,
		prices: prices,
		opts:   opts,
	}
}

// ListCompanies returns one page of companies for the filter. The price
// snapshot is only fetched when the query embeds it.
func (s *CompanyService) ListCompanies(ctx context.Context, filter domain.CompanyFilter) ([]domain.Company, error) {
	filter = filter.Normalize()

	var rows []domain.PriceRow
	if filter.NeedsPrices() {
		var err error
		rows, err = s.prices.GetPrices(ctx)
		if err != nil && !s.tolerate(ctx, rows, err) {
			return nil, fmt.Errorf("get prices: %w", err)
		}
	}

	q := query.BuildCompanyQuery(filter.IncludeHistoricalData, filter.IncludeFluctuation(), rows, s.opts.Query)

	if filter.ExchangeSymbol != "" {
		q.Where("c.exchange_symbol = ?", filter.ExchangeSymbol)
	}
	if filter.MinScore != nil {
		q.Where("s.total >= ?::numeric", *filter.MinScore)
	}

	q.OrderBy(filter.SortBy)
	q.Paginate(filter.Limit, filter.Offset)

	logger.WithContext(ctx).Debug("listing companies",
		zap.String("sort_by", string(filter.SortBy)),
		zap.Bool("historical", filter.IncludeHistoricalData),
		zap.Int("price_rows", len(rows)),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	companies, err := s.store.QueryCompanies(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}

	return companies, nil
}

func (s *CompanyService) tolerate(ctx context.Context, rows []domain.PriceRow, err error) bool {
	var cacheErr *CacheError
	if !s.opts.CacheFailOpen || rows == nil || !errors.As(err, &cacheErr) {
		return false
	}

	logger.WithContext(ctx).Warn("price cache unavailable, using store rows",
		zap.String("operation", cacheErr.Op),
		zap.Error(err))
	return true
}
