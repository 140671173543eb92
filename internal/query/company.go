package query

import (
	"fmt"
	"strings"

	"github.com/jeovahfialho/companies-api/internal/domain"
)

type Options struct {
	// ReferenceDate anchors the fluctuation window, formatted YYYY-MM-DD.
	ReferenceDate string
	WindowDays    int
}

func DefaultOptions() Options {
	return Options{
		ReferenceDate: "2020-05-22",
		WindowDays:    90,
	}
}

// CompanyQuery is a parameterized SELECT over companies. Clauses added with
// Where, OrderBy and Paginate are rendered in SQL order regardless of the
// order they were added in; placeholders are numbered as values are bound.
type CompanyQuery struct {
	IncludeHistorical  bool
	IncludeFluctuation bool

	base    string
	where   []string
	orderBy string
	page    string
	args    []interface{}
}

const selectCompanies = `
SELECT
	c.id::text AS id,
	c.name,
	c.unique_symbol,
	c.exchange_symbol,
	s.total AS score,
	p.price AS last_price`

const fromCompanies = `
FROM swsCompany c
JOIN swsCompanyScore s ON c.score_id = s.id
LEFT JOIN (
	SELECT pc.company_id, pc.price
	FROM swsCompanyPriceClose pc
	WHERE pc.date = (
		SELECT MAX(latest.date)
		FROM swsCompanyPriceClose latest
		WHERE latest.company_id = pc.company_id
	)
) p ON c.id = p.company_id`

// BuildCompanyQuery assembles the base query and, when asked for, the
// derived price projections fed from the cached snapshot rows.
//
// The fluctuation projection reads the whole snapshot, not the row's own
// company, so every company gets the same value. Callers rely on that
// today; see DESIGN.md before scoping it per company.
func BuildCompanyQuery(includeHistorical, includeFluctuation bool, rows []domain.PriceRow, opts Options) *CompanyQuery {
	q := &CompanyQuery{
		IncludeHistorical:  includeHistorical,
		IncludeFluctuation: includeFluctuation,
	}

	var sb strings.Builder
	sb.WriteString(selectCompanies)

	if includeHistorical || includeFluctuation {
		index := GroupByCompany(rows)
		ids, dates, prices := index.Columns()

		datesParam := q.bind(dates)
		pricesParam := q.bind(prices)

		if includeFluctuation {
			fmt.Fprintf(&sb, `,
	(
		SELECT MAX(fluctuation.price::numeric) - MIN(fluctuation.price::numeric)
		FROM unnest(%s::text[], %s::text[]) AS fluctuation(date, price)
		WHERE fluctuation.date::date >= %s::text::date - %s::int
	) AS price_fluctuation`,
				datesParam, pricesParam, q.bind(opts.ReferenceDate), q.bind(opts.WindowDays))
		}

		if includeHistorical {
			fmt.Fprintf(&sb, `,
	(
		SELECT COALESCE(
			json_agg(json_build_object('date', historical.date, 'price', historical.price::numeric) ORDER BY historical.date),
			'[]'::json
		)
		FROM unnest(%s::text[], %s::text[], %s::text[]) AS historical(company_id, date, price)
		WHERE historical.company_id = c.id::text
	) AS historical_prices`,
				q.bind(ids), datesParam, pricesParam)
		}
	}

	sb.WriteString(fromCompanies)
	q.base = sb.String()

	return q
}

func (q *CompanyQuery) bind(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// Where adds a condition joined with AND. Each "?" in clause is replaced by
// the next placeholder, consuming values in order.
func (q *CompanyQuery) Where(clause string, values ...interface{}) *CompanyQuery {
	for _, v := range values {
		clause = strings.Replace(clause, "?", q.bind(v), 1)
	}
	q.where = append(q.where, clause)
	return q
}

func (q *CompanyQuery) OrderBy(sortBy domain.SortBy) *CompanyQuery {
	switch sortBy {
	case domain.SortByScore:
		q.orderBy = "s.total DESC"
	case domain.SortByPriceFluctuation:
		if q.IncludeFluctuation {
			q.orderBy = "price_fluctuation DESC NULLS LAST"
		}
	default:
		q.orderBy = ""
	}
	return q
}

func (q *CompanyQuery) Paginate(limit, offset int) *CompanyQuery {
	q.page = fmt.Sprintf("LIMIT %s OFFSET %s", q.bind(limit), q.bind(offset))
	return q
}

func (q *CompanyQuery) SQL() string {
	var sb strings.Builder
	sb.WriteString(q.base)

	if len(q.where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}
	if q.orderBy != "" {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(q.orderBy)
	}
	if q.page != "" {
		sb.WriteString("\n")
		sb.WriteString(q.page)
	}

	return sb.String()
}

func (q *CompanyQuery) Args() []interface{} {
	return q.args
}
