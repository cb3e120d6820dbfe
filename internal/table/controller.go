package table

import "sync"

// Controller owns the current Query for one table and is its only writer.
// Every setter except SetPage moves back to page 1, even when the new value
// equals the old one.
type Controller struct {
	mu          sync.Mutex
	q           Query
	defaultSize int
	listeners   []func(Query)
}

// NewController returns a controller on page 1 with the given page size.
func NewController(pageSize int) *Controller {
	q := NewQuery(pageSize)
	return &Controller{q: q, defaultSize: q.PageSize}
}

// Query returns a copy of the current query.
func (c *Controller) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.WithPage(c.q.Page)
}

// OnChange registers fn to be called with every new query.
func (c *Controller) OnChange(fn func(Query)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) SetPage(n int) Query {
	return c.apply(func(q Query) Query { return q.WithPage(n) })
}

func (c *Controller) SetPageSize(n int) Query {
	if n < 1 {
		n = c.defaultSize
	}
	return c.apply(func(q Query) Query { return q.WithPageSize(n) })
}

func (c *Controller) SetSearch(text string) Query {
	return c.apply(func(q Query) Query { return q.WithSearch(text) })
}

func (c *Controller) SetFilters(f Filters) Query {
	return c.apply(func(q Query) Query { return q.WithFilters(f) })
}

func (c *Controller) SetSort(key string, dir Direction) Query {
	return c.apply(func(q Query) Query { return q.WithSort(key, dir) })
}

// SelectSort applies the header-click rule: selecting the active key flips
// its direction, selecting any other key sorts ascending by it.
func (c *Controller) SelectSort(key string) Query {
	return c.apply(func(q Query) Query {
		if q.SortKey == key && key != "" {
			return q.WithSort(key, q.SortDir.Flip())
		}
		return q.WithSort(key, Ascending)
	})
}

// Replace installs q as a whole, for callers that assemble a query up front
// (command-line flags, a restored view). A non-positive page size falls back
// to the default.
func (c *Controller) Replace(q Query) Query {
	return c.apply(func(Query) Query {
		out := q.WithFilters(q.Filters).WithPage(q.Page)
		if out.PageSize < 1 {
			out.PageSize = c.defaultSize
		}
		return out
	})
}

// Reset returns to an unfiltered first page, keeping the page size.
func (c *Controller) Reset() Query {
	return c.apply(func(q Query) Query { return NewQuery(q.PageSize) })
}

func (c *Controller) apply(fn func(Query) Query) Query {
	c.mu.Lock()
	c.q = fn(c.q)
	q := c.q
	listeners := append([]func(Query){}, c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(q.WithPage(q.Page))
	}
	return q.WithPage(q.Page)
}
