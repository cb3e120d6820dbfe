// Package table derives the visible slice of a record collection from a
// Query: search, filter, sort and paginate. Everything here is a pure
// function of a snapshot; the owning screen decides when to re-derive.
package table

import (
	"maps"
	"slices"
	"time"
)

// DefaultPageSize is used when a controller is created without one.
const DefaultPageSize = 10

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Value is a single filter value. Exactly one of Scalar, List or the
// From/To bounds is meaningful, depending on the descriptor kind the value
// is matched against. Zero From/To bounds are open.
type Value struct {
	Scalar string    `json:"scalar,omitempty"`
	List   []string  `json:"list,omitempty"`
	From   time.Time `json:"from,omitzero"`
	To     time.Time `json:"to,omitzero"`
}

// Scalar returns an exact-match value.
func Scalar(s string) Value { return Value{Scalar: s} }

// List returns a multi-match value.
func List(items ...string) Value { return Value{List: items} }

// Between returns a date range value. Either bound may be zero.
func Between(from, to time.Time) Value { return Value{From: from, To: to} }

// On returns a single-day date value.
func On(day time.Time) Value { return Value{From: day} }

// IsZero reports whether v imposes no constraint.
func (v Value) IsZero() bool {
	return v.Scalar == "" && len(v.List) == 0 && v.From.IsZero() && v.To.IsZero()
}

func (v Value) clone() Value {
	v.List = slices.Clone(v.List)
	return v
}

// Filters maps a filter key to its value. An absent key means no constraint.
type Filters map[string]Value

// Clone returns a deep copy of f.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v.clone()
	}
	return out
}

// Query is the complete parameter set for deriving a visible page.
type Query struct {
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Search   string    `json:"search,omitempty"`
	Filters  Filters   `json:"filters,omitempty"`
	SortKey  string    `json:"sort_key,omitempty"`
	SortDir  Direction `json:"sort_dir"`
}

// NewQuery returns the first page of an unfiltered, unsorted query.
func NewQuery(pageSize int) Query {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Query{Page: 1, PageSize: pageSize}
}

// WithPage returns q positioned at page n. Nothing else changes; the page is
// not checked against the page count.
func (q Query) WithPage(n int) Query {
	if n < 1 {
		n = 1
	}
	q.Filters = q.Filters.Clone()
	q.Page = n
	return q
}

// WithPageSize returns q with a new page size, back on page 1.
func (q Query) WithPageSize(n int) Query {
	if n < 1 {
		n = DefaultPageSize
	}
	q.Filters = q.Filters.Clone()
	q.PageSize = n
	q.Page = 1
	return q
}

// WithSearch returns q with new search text, back on page 1.
func (q Query) WithSearch(text string) Query {
	q.Filters = q.Filters.Clone()
	q.Search = text
	q.Page = 1
	return q
}

// WithFilters returns q with its filters replaced, back on page 1. Zero
// values are dropped.
func (q Query) WithFilters(f Filters) Query {
	out := make(Filters, len(f))
	for k, v := range f {
		if !v.IsZero() {
			out[k] = v.clone()
		}
	}
	q.Filters = out
	q.Page = 1
	return q
}

// WithSort returns q sorted by key in dir, back on page 1. An empty key
// clears sorting.
func (q Query) WithSort(key string, dir Direction) Query {
	q.Filters = q.Filters.Clone()
	q.SortKey = key
	q.SortDir = dir
	if key == "" {
		q.SortDir = Ascending
	}
	q.Page = 1
	return q
}

// Equal reports whether q and o describe the same query.
func (q Query) Equal(o Query) bool {
	if q.Page != o.Page || q.PageSize != o.PageSize || q.Search != o.Search ||
		q.SortKey != o.SortKey || q.SortDir != o.SortDir {
		return false
	}
	return maps.EqualFunc(q.Filters, o.Filters, func(a, b Value) bool {
		return a.Scalar == b.Scalar && slices.Equal(a.List, b.List) &&
			a.From.Equal(b.From) && a.To.Equal(b.To)
	})
}
