package models

import (
	"net/url"
	"strconv"
)

// Sort directions accepted by table screens
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultPageLimit is the page size table screens open with
const DefaultPageLimit = 50

// Query parameter names shared by the cache key and the upstream request
const (
	ParamLimit         = "limit"
	ParamOffset        = "offset"
	ParamSortField     = "sort_field"
	ParamSortDirection = "sort_direction"
)

// TableQuery holds the parameters a table screen pages and sorts by
type TableQuery struct {
	Limit         int
	Offset        int
	SortField     string
	SortDirection string
	Filters       map[string]string
}

// Sorted reports whether the query asks for server-side ordering
func (q TableQuery) Sorted() bool {
	return q.SortField != "" && q.SortDirection != ""
}

// Values renders the query as URL parameters. Encode() on the result is
// canonical because url.Values sorts by name.
func (q TableQuery) Values() url.Values {
	values := url.Values{}
	for name, value := range q.Filters {
		values.Set(name, value)
	}
	values.Set(ParamLimit, strconv.Itoa(q.Limit))
	values.Set(ParamOffset, strconv.Itoa(q.Offset))
	if q.Sorted() {
		values.Set(ParamSortField, q.SortField)
		values.Set(ParamSortDirection, q.SortDirection)
	}
	return values
}
