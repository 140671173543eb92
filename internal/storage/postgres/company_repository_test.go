package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/query"
	"github.com/jeovahfialho/companies-api/internal/storage/postgres"
	"github.com/jeovahfialho/companies-api/internal/testutil"
)

const seedSQL = `
INSERT INTO swsCompanyScore (id, total) VALUES (1, 26507), (2, 1895), (3, 162);
INSERT INTO swsCompany (id, name, unique_symbol, exchange_symbol, score_id) VALUES
	('apt', 'Afterpay', 'ASX:APT', 'ASX', 1),
	('bhp', 'BHP Group', 'ASX:BHP', 'ASX', 2),
	('aapl', 'Apple', 'NasdaqGS:AAPL', 'NasdaqGS', 3);
INSERT INTO swsCompanyPriceClose (company_id, date, price) VALUES
	('apt', '2020-05-20', 140),
	('apt', '2020-05-21', 145),
	('bhp', '2020-05-21', 30),
	('bhp', '2019-12-01', 999);
`

func setupRepository(t *testing.T) (*postgres.CompanyRepository, *pgxpool.Pool) {
	t.Helper()

	pool := testutil.SetupPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, postgres.Schema)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, seedSQL)
	require.NoError(t, err)

	return postgres.NewCompanyRepository(pool), pool
}

func ids(companies []domain.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.ID)
	}
	return out
}

func TestCompanyRepository_ListPriceCloses(t *testing.T) {
	repo, _ := setupRepository(t)

	rows, err := repo.ListPriceCloses(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 4)
	dates := map[string]bool{}
	for _, r := range rows {
		dates[r.Date] = true
	}
	assert.True(t, dates["2020-05-20"])
	assert.True(t, dates["2020-05-21"])
	assert.True(t, dates["2019-12-01"])
}

func TestCompanyRepository_DefaultQuery(t *testing.T) {
	repo, _ := setupRepository(t)

	q := query.BuildCompanyQuery(false, false, nil, query.DefaultOptions()).Paginate(30, 0)
	companies, err := repo.QueryCompanies(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, companies, 3)
	byID := map[string]domain.Company{}
	for _, c := range companies {
		byID[c.ID] = c
		assert.Nil(t, c.PriceFluctuation)
		assert.Nil(t, c.HistoricalPrices)
	}

	require.NotNil(t, byID["apt"].LastPrice)
	assert.Equal(t, "145", byID["apt"].LastPrice.String())
	require.NotNil(t, byID["bhp"].LastPrice)
	assert.Equal(t, "30", byID["bhp"].LastPrice.String())
	assert.Nil(t, byID["aapl"].LastPrice)
}

func TestCompanyRepository_SortFilterPaginate(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	q := query.BuildCompanyQuery(false, false, nil, query.DefaultOptions()).
		OrderBy(domain.SortByScore).
		Paginate(30, 0)
	companies, err := repo.QueryCompanies(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"apt", "bhp", "aapl"}, ids(companies))

	q = query.BuildCompanyQuery(false, false, nil, query.DefaultOptions()).
		Where("c.exchange_symbol = ?", "ASX").
		Where("s.total >= ?::numeric", 1895.0).
		OrderBy(domain.SortByScore).
		Paginate(30, 0)
	companies, err = repo.QueryCompanies(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"apt", "bhp"}, ids(companies))

	q = query.BuildCompanyQuery(false, false, nil, query.DefaultOptions()).
		OrderBy(domain.SortByScore).
		Paginate(1, 1)
	companies, err = repo.QueryCompanies(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"bhp"}, ids(companies))
}

func TestCompanyRepository_HistoricalPrices(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	prices, err := repo.ListPriceCloses(ctx)
	require.NoError(t, err)

	q := query.BuildCompanyQuery(true, false, prices, query.DefaultOptions()).
		OrderBy(domain.SortByScore).
		Paginate(30, 0)
	companies, err := repo.QueryCompanies(ctx, q)
	require.NoError(t, err)
	require.Len(t, companies, 3)

	apt := companies[0]
	require.Len(t, apt.HistoricalPrices, 2)
	assert.Equal(t, "2020-05-20", apt.HistoricalPrices[0].Date)
	assert.Equal(t, "145", apt.HistoricalPrices[1].Price.String())

	bhp := companies[1]
	require.Len(t, bhp.HistoricalPrices, 2)
	assert.Equal(t, "2019-12-01", bhp.HistoricalPrices[0].Date)

	aapl := companies[2]
	assert.NotNil(t, aapl.HistoricalPrices)
	assert.Empty(t, aapl.HistoricalPrices)
}

// Fluctuation is computed over the whole snapshot, so every company carries
// the same max-min value (145 - 30). The 999 close from 2019-12-01 falls
// outside the 90 day window ending 2020-05-22 and must not count.
func TestCompanyRepository_FluctuationIsGlobal(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	prices, err := repo.ListPriceCloses(ctx)
	require.NoError(t, err)

	q := query.BuildCompanyQuery(false, true, prices, query.DefaultOptions()).
		OrderBy(domain.SortByPriceFluctuation).
		Paginate(30, 0)
	companies, err := repo.QueryCompanies(ctx, q)
	require.NoError(t, err)
	require.Len(t, companies, 3)

	for _, c := range companies {
		require.NotNil(t, c.PriceFluctuation, c.ID)
		assert.Equal(t, "115", c.PriceFluctuation.String(), c.ID)
	}
}
