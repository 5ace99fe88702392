package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"product-api/internal/entity"
)

const productsTable = "products"

var productColumns = []string{"id", "name", "price", "features", "purchase_date", "description", "size", "image_path"}

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// Query is an assembled product listing query: one conjunctive filter, an
// order clause and a pagination window. The same filter backs both the page
// select and the total count, so totals are independent of the window.
type Query struct {
	filter  sq.And
	orderBy string
	limit   uint64
	offset  uint64
}

// Build assembles the full predicate list up front from the request
// parameters. Absent parameters contribute no predicate; all present
// predicates combine with AND.
func Build(p entity.ListParams) Query {
	filter := sq.And{}

	if strings.TrimSpace(p.Search) != "" {
		filter = append(filter, sq.Like{"name": "%" + escapeLike(p.Search) + "%"})
	}
	if p.FromDate != nil {
		filter = append(filter, sq.GtOrEq{"purchase_date": *p.FromDate})
	}
	if p.ToDate != nil {
		filter = append(filter, sq.LtOrEq{"purchase_date": *p.ToDate})
	}
	if p.Features != "" {
		// Every comma-separated token must appear as a substring.
		for _, token := range strings.Split(p.Features, ",") {
			filter = append(filter, sq.Like{"features": "%" + escapeLike(token) + "%"})
		}
	}
	if p.MinPrice != nil {
		filter = append(filter, sq.GtOrEq{"price": *p.MinPrice})
	}
	if p.MaxPrice != nil {
		filter = append(filter, sq.LtOrEq{"price": *p.MaxPrice})
	}

	page := p.Page
	if page < defaultPage {
		page = defaultPage
	}
	pageSize := p.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	return Query{
		filter:  filter,
		orderBy: orderClause(p.SortBy, p.SortOrder),
		limit:   uint64(pageSize),
		offset:  uint64((page - 1) * pageSize),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a user token match as a literal substring inside a LIKE
// pattern. MySQL uses backslash as the default escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderClause maps the sort parameters to an ORDER BY clause. Unknown sort
// keys fall back to ascending id order.
func orderClause(sortBy, sortOrder string) string {
	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}

	switch strings.ToLower(sortBy) {
	case "name":
		return "name " + direction
	case "price":
		return "price " + direction
	case "purchasedate":
		return "purchase_date " + direction
	default:
		return "id ASC"
	}
}

// SelectSQL renders the filtered, sorted and windowed page select.
func (q Query) SelectSQL() (string, []interface{}, error) {
	builder := sq.Select(productColumns...).From(productsTable)
	if len(q.filter) > 0 {
		builder = builder.Where(q.filter)
	}
	return builder.OrderBy(q.orderBy).Limit(q.limit).Offset(q.offset).ToSql()
}

// CountSQL renders the total count over the same filter, ignoring the sort
// and the pagination window.
func (q Query) CountSQL() (string, []interface{}, error) {
	builder := sq.Select("COUNT(*)").From(productsTable)
	if len(q.filter) > 0 {
		builder = builder.Where(q.filter)
	}
	return builder.ToSql()
}
