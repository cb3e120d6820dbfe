package table

import "sync/atomic"

// View is the derived visible state of a table.
type View[T any] struct {
	Items      []T    `json:"items"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Window     []Mark `json:"window"`
}

// Hidden reports whether pagination controls should be hidden.
func (v View[T]) Hidden() bool { return v.TotalItems == 0 }

// Derive filters, sorts and paginates items according to q. items is not
// modified.
func Derive[T any](s *Schema[T], items []T, q Query) View[T] {
	matched := s.Sort(s.Filter(items, q), q.SortKey, q.SortDir)
	return PageOf(matched, q)
}

// PageOf builds a view over an already filtered and sorted slice.
func PageOf[T any](matched []T, q Query) View[T] {
	page, total := Paginate(matched, q.Page, q.PageSize)
	return View[T]{
		Items:      page,
		TotalItems: len(matched),
		TotalPages: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Window:     PageWindow(q.Page, total),
	}
}

// Served builds a view from a page the server has already cut, given the
// server's total match count.
func Served[T any](items []T, totalItems int, q Query) View[T] {
	total := TotalPages(totalItems, q.PageSize)
	if items == nil {
		items = []T{}
	}
	return View[T]{
		Items:      items,
		TotalItems: totalItems,
		TotalPages: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Window:     PageWindow(q.Page, total),
	}
}

// Ticket identifies one issued fetch.
type Ticket uint64

// Sequencer orders overlapping fetches. Only the response to the most
// recently issued ticket may be applied; older ones are stale.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new ticket, making every earlier ticket stale.
func (s *Sequencer) Next() Ticket { return Ticket(s.latest.Add(1)) }

// Current reports whether t is still the latest ticket.
func (s *Sequencer) Current(t Ticket) bool { return uint64(t) == s.latest.Load() }
