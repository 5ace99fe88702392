package query_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/shopspring/decimal"

	"product-api/internal/entity"
	"product-api/internal/query"
)

const selectColumns = "SELECT id, name, price, features, purchase_date, description, size, image_path FROM products"

func TestBuildDefaults(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{})

	sql, args, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, selectColumns+" ORDER BY id ASC LIMIT 10 OFFSET 0")
	c.Assert(args, qt.HasLen, 0)

	countSQL, countArgs, err := q.CountSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(countSQL, qt.Equals, "SELECT COUNT(*) FROM products")
	c.Assert(countArgs, qt.HasLen, 0)
}

func TestBuildSearchPredicate(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{Search: "phone"})

	sql, args, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, selectColumns+" WHERE (name LIKE ?) ORDER BY id ASC LIMIT 10 OFFSET 0")
	c.Assert(args, qt.DeepEquals, []interface{}{"%phone%"})
}

func TestBuildBlankSearchIgnored(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{Search: "   "})

	sql, _, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, selectColumns+" ORDER BY id ASC LIMIT 10 OFFSET 0")
}

func TestBuildAllPredicatesCombineWithAnd(t *testing.T) {
	c := qt.New(t)

	fromDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	toDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	minPrice := decimal.NewFromInt(100)
	maxPrice := decimal.NewFromInt(5000)

	q := query.Build(entity.ListParams{
		Search:   "cam",
		FromDate: &fromDate,
		ToDate:   &toDate,
		Features: "red,large",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})

	sql, args, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, selectColumns+
		" WHERE (name LIKE ? AND purchase_date >= ? AND purchase_date <= ?"+
		" AND features LIKE ? AND features LIKE ?"+
		" AND price >= ? AND price <= ?)"+
		" ORDER BY id ASC LIMIT 10 OFFSET 0")
	c.Assert(args, qt.DeepEquals, []interface{}{
		"%cam%", fromDate, toDate, "%red%", "%large%", minPrice, maxPrice,
	})

	countSQL, countArgs, err := q.CountSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(countSQL, qt.Equals, "SELECT COUNT(*) FROM products"+
		" WHERE (name LIKE ? AND purchase_date >= ? AND purchase_date <= ?"+
		" AND features LIKE ? AND features LIKE ?"+
		" AND price >= ? AND price <= ?)")
	c.Assert(countArgs, qt.DeepEquals, args)
}

func TestBuildFeatureTokens(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{Features: "red,large"})

	sql, args, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(sql, qt.Equals, selectColumns+" WHERE (features LIKE ? AND features LIKE ?) ORDER BY id ASC LIMIT 10 OFFSET 0")
	c.Assert(args, qt.DeepEquals, []interface{}{"%red%", "%large%"})
}

func TestBuildEscapesLikeMetacharacters(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{Search: "100%", Features: `4_k,back\slash`})

	_, args, err := q.SelectSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(args, qt.DeepEquals, []interface{}{
		`%100\%%`, `%4\_k%`, `%back\\slash%`,
	})
}

func TestBuildSortSelection(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		expected  string
	}{
		{name: "name ascending", sortBy: "name", sortOrder: "", expected: "name ASC"},
		{name: "name descending", sortBy: "name", sortOrder: "desc", expected: "name DESC"},
		{name: "price uppercase key", sortBy: "PRICE", sortOrder: "asc", expected: "price ASC"},
		{name: "price descending uppercase order", sortBy: "price", sortOrder: "DESC", expected: "price DESC"},
		{name: "purchase date", sortBy: "purchasedate", sortOrder: "desc", expected: "purchase_date DESC"},
		{name: "unknown key falls back", sortBy: "bogus", sortOrder: "desc", expected: "id ASC"},
		{name: "absent key falls back", sortBy: "", sortOrder: "desc", expected: "id ASC"},
		{name: "order other than desc is ascending", sortBy: "name", sortOrder: "descending", expected: "name ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			q := query.Build(entity.ListParams{SortBy: tt.sortBy, SortOrder: tt.sortOrder})

			sql, _, err := q.SelectSQL()
			c.Assert(err, qt.IsNil)
			c.Assert(sql, qt.Equals, selectColumns+" ORDER BY "+tt.expected+" LIMIT 10 OFFSET 0")
		})
	}
}

func TestBuildPaginationWindow(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		window   string
	}{
		{name: "first page", page: 1, pageSize: 20, window: "LIMIT 20 OFFSET 0"},
		{name: "third page", page: 3, pageSize: 20, window: "LIMIT 20 OFFSET 40"},
		{name: "zero page clamps to first", page: 0, pageSize: 20, window: "LIMIT 20 OFFSET 0"},
		{name: "negative page clamps to first", page: -2, pageSize: 20, window: "LIMIT 20 OFFSET 0"},
		{name: "zero page size uses default", page: 2, pageSize: 0, window: "LIMIT 10 OFFSET 10"},
		{name: "negative page size uses default", page: 1, pageSize: -5, window: "LIMIT 10 OFFSET 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			q := query.Build(entity.ListParams{Page: tt.page, PageSize: tt.pageSize})

			sql, _, err := q.SelectSQL()
			c.Assert(err, qt.IsNil)
			c.Assert(sql, qt.Equals, selectColumns+" ORDER BY id ASC "+tt.window)
		})
	}
}

func TestCountIgnoresWindowAndSort(t *testing.T) {
	c := qt.New(t)

	q := query.Build(entity.ListParams{Search: "cam", SortBy: "price", SortOrder: "desc", Page: 7, PageSize: 3})

	countSQL, countArgs, err := q.CountSQL()
	c.Assert(err, qt.IsNil)
	c.Assert(countSQL, qt.Equals, "SELECT COUNT(*) FROM products WHERE (name LIKE ?)")
	c.Assert(countArgs, qt.DeepEquals, []interface{}{"%cam%"})
}
