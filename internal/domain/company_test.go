package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyJSONOmitsOptionalFields(t *testing.T) {
	c := Company{
		ID:             "46B285BC-B25F-4814-985C-390A4BFA2023",
		Name:           "Afterpay",
		UniqueSymbol:   "ASX:APT",
		ExchangeSymbol: "ASX",
		Score:          26507,
	}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.NotContains(t, fields, "last_price")
	assert.NotContains(t, fields, "price_fluctuation")
	assert.NotContains(t, fields, "historical_prices")
	assert.Equal(t, "ASX:APT", fields["unique_symbol"])
}

func TestCompanyJSONPricesAreNumbers(t *testing.T) {
	last := decimal.RequireFromString("150.25")
	c := Company{
		ID:        "1",
		LastPrice: &last,
		HistoricalPrices: []PricePoint{
			{Date: "2020-05-01", Price: decimal.RequireFromString("140")},
		},
	}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"last_price":150.25`)
	assert.Contains(t, string(raw), `"historical_prices":[{"date":"2020-05-01","price":140}]`)
}

func TestCompanyJSONKeepsRequestedEmptyHistory(t *testing.T) {
	c := Company{ID: "1", HistoricalPrices: []PricePoint{}}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"historical_prices":[]`)
}

func TestPriceRowSnapshotRoundTrip(t *testing.T) {
	rows := []PriceRow{
		{CompanyID: "a", Date: "2020-05-21", Price: decimal.RequireFromString("10.5")},
		{CompanyID: "b", Date: "2020-05-22", Price: decimal.RequireFromString("7")},
	}

	raw, err := json.Marshal(rows)
	require.NoError(t, err)

	var decoded []PriceRow
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Len(t, decoded, 2)
	assert.True(t, rows[0].Price.Equal(decoded[0].Price))
	assert.Equal(t, "b", decoded[1].CompanyID)
}

func TestParseSortBy(t *testing.T) {
	assert.Equal(t, SortByScore, ParseSortBy("score"))
	assert.Equal(t, SortByPriceFluctuation, ParseSortBy("price_fluctuation"))
	assert.Equal(t, SortBy(""), ParseSortBy("name"))
	assert.Equal(t, SortBy(""), ParseSortBy(""))
}

func TestCompanyFilterNeedsPrices(t *testing.T) {
	f := NewCompanyFilter()
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.False(t, f.NeedsPrices())

	f.SortBy = SortByScore
	assert.False(t, f.NeedsPrices())

	f.SortBy = SortByPriceFluctuation
	assert.True(t, f.NeedsPrices())

	f = NewCompanyFilter()
	f.IncludeHistoricalData = true
	assert.True(t, f.NeedsPrices())
}

func TestCompanyFilterNormalize(t *testing.T) {
	f := CompanyFilter{Limit: -1, Offset: -5}.Normalize()
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = CompanyFilter{Limit: 0, Offset: 3}.Normalize()
	assert.Equal(t, 0, f.Limit)
	assert.Equal(t, 3, f.Offset)
}
