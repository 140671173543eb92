package domain

type SortBy string

const (
	SortByScore            SortBy = "score"
	SortByPriceFluctuation SortBy = "price_fluctuation"
)

const (
	DefaultLimit  = 30
	DefaultOffset = 0
)

// ParseSortBy returns the empty SortBy for anything it does not know, which
// leaves results in storage order.
func ParseSortBy(s string) SortBy {
	switch SortBy(s) {
	case SortByScore, SortByPriceFluctuation:
		return SortBy(s)
	default:
		return ""
	}
}

type CompanyFilter struct {
	SortBy                SortBy
	ExchangeSymbol        string
	MinScore              *float64
	IncludeHistoricalData bool
	Limit                 int
	Offset                int
}

func NewCompanyFilter() CompanyFilter {
	return CompanyFilter{
		Limit:  DefaultLimit,
		Offset: DefaultOffset,
	}
}

func (f CompanyFilter) IncludeFluctuation() bool {
	return f.SortBy == SortByPriceFluctuation
}

// NeedsPrices reports whether the query will embed the cached price snapshot.
func (f CompanyFilter) NeedsPrices() bool {
	return f.IncludeHistoricalData || f.IncludeFluctuation()
}

// Normalize replaces values the store would reject: a negative limit falls
// back to the default and a negative offset to zero.
func (f CompanyFilter) Normalize() CompanyFilter {
	if f.Limit < 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = DefaultOffset
	}
	return f
}
