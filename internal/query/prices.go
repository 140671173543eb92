package query

import "github.com/jeovahfialho/companies-api/internal/domain"

// PriceIndex groups snapshot rows by company, keeping the order in which
// companies first appear so generated arguments are stable.
type PriceIndex struct {
	order     []string
	byCompany map[string][]domain.PricePoint
}

func GroupByCompany(rows []domain.PriceRow) *PriceIndex {
	idx := &PriceIndex{
		byCompany: make(map[string][]domain.PricePoint),
	}

	for _, row := range rows {
		if _, ok := idx.byCompany[row.CompanyID]; !ok {
			idx.order = append(idx.order, row.CompanyID)
		}
		idx.byCompany[row.CompanyID] = append(idx.byCompany[row.CompanyID], domain.PricePoint{
			Date:  row.Date,
			Price: row.Price,
		})
	}

	return idx
}

func (idx *PriceIndex) Len() int {
	n := 0
	for _, points := range idx.byCompany {
		n += len(points)
	}
	return n
}

// Columns flattens the index into parallel arrays suitable for unnest.
// The slices are never nil so they bind as empty arrays, not NULL.
func (idx *PriceIndex) Columns() (ids, dates, prices []string) {
	n := idx.Len()
	ids = make([]string, 0, n)
	dates = make([]string, 0, n)
	prices = make([]string, 0, n)

	for _, id := range idx.order {
		for _, p := range idx.byCompany[id] {
			ids = append(ids, id)
			dates = append(dates, p.Date)
			prices = append(prices, p.Price.String())
		}
	}

	return ids, dates, prices
}
