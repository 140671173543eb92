package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/query"
	"github.com/jeovahfialho/companies-api/pkg/logger"
	"github.com/jeovahfialho/companies-api/pkg/metrics"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type CompanyRepository struct {
	db Querier
}

func NewCompanyRepository(db Querier) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const listPriceClosesSQL = `
SELECT
	company_id::text,
	to_char(date::date, 'YYYY-MM-DD'),
	price
FROM swsCompanyPriceClose`

// ListPriceCloses reads the whole daily close table.
func (r *CompanyRepository) ListPriceCloses(ctx context.Context) ([]domain.PriceRow, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("price_closes"))

	rows, err := r.db.Query(ctx, listPriceClosesSQL)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("price_closes", "error").Inc()
		return nil, fmt.Errorf("query price closes: %w", err)
	}
	defer rows.Close()

	prices := make([]domain.PriceRow, 0)
	for rows.Next() {
		var row domain.PriceRow
		if err := rows.Scan(&row.CompanyID, &row.Date, &row.Price); err != nil {
			metrics.DatabaseQueries.WithLabelValues("price_closes", "error").Inc()
			return nil, fmt.Errorf("scan price close: %w", err)
		}
		prices = append(prices, row)
	}

	if err := rows.Err(); err != nil {
		metrics.DatabaseQueries.WithLabelValues("price_closes", "error").Inc()
		return nil, fmt.Errorf("iterate price closes: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("price_closes", "success").Inc()
	logger.Debug("price closes loaded", zap.Int("rows", len(prices)))

	return prices, nil
}

// QueryCompanies runs a built company query. The scanned columns follow the
// projections the query was built with.
func (r *CompanyRepository) QueryCompanies(ctx context.Context, q *query.CompanyQuery) ([]domain.Company, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("companies"))

	rows, err := r.db.Query(ctx, q.SQL(), q.Args()...)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("companies", "error").Inc()
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]domain.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows, q)
		if err != nil {
			metrics.DatabaseQueries.WithLabelValues("companies", "error").Inc()
			return nil, err
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		metrics.DatabaseQueries.WithLabelValues("companies", "error").Inc()
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("companies", "success").Inc()
	return companies, nil
}

func scanCompany(rows pgx.Rows, q *query.CompanyQuery) (domain.Company, error) {
	var (
		c           domain.Company
		lastPrice   decimal.NullDecimal
		fluctuation decimal.NullDecimal
		historical  []domain.PricePoint
	)

	dest := []interface{}{
		&c.ID,
		&c.Name,
		&c.UniqueSymbol,
		&c.ExchangeSymbol,
		&c.Score,
		&lastPrice,
	}
	if q.IncludeFluctuation {
		dest = append(dest, &fluctuation)
	}
	if q.IncludeHistorical {
		dest = append(dest, &historical)
	}

	if err := rows.Scan(dest...); err != nil {
		return domain.Company{}, fmt.Errorf("scan company: %w", err)
	}

	if lastPrice.Valid {
		c.LastPrice = &lastPrice.Decimal
	}
	if fluctuation.Valid {
		c.PriceFluctuation = &fluctuation.Decimal
	}
	if q.IncludeHistorical {
		if historical == nil {
			historical = []domain.PricePoint{}
		}
		c.HistoricalPrices = historical
	}

	return c, nil
}
