package domain

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices leave the API as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Company is a per-request snapshot. HistoricalPrices is nil when history was
// not requested and non-nil (possibly empty) when it was.
type Company struct {
	ID               string           `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	UniqueSymbol     string           `db:"unique_symbol" json:"unique_symbol"`
	ExchangeSymbol   string           `db:"exchange_symbol" json:"exchange_symbol"`
	Score            int64            `db:"score" json:"score"`
	LastPrice        *decimal.Decimal `db:"last_price" json:"last_price,omitempty"`
	PriceFluctuation *decimal.Decimal `db:"price_fluctuation" json:"price_fluctuation,omitempty"`
	HistoricalPrices []PricePoint     `db:"historical_prices" json:"historical_prices,omitzero"`
}

type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// PriceRow is one row of the daily close table. The cached price snapshot
// is a JSON array of these.
type PriceRow struct {
	CompanyID string          `db:"company_id" json:"company_id"`
	Date      string          `db:"date" json:"date"`
	Price     decimal.Decimal `db:"price" json:"price"`
}
