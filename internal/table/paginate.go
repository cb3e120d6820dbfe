package table

import (
	"strconv"
	"strings"
)

// WindowDelta is how many pages either side of the current page the page
// bar shows.
const WindowDelta = 2

// TotalPages returns ceil(n/pageSize), never less than 1.
func TotalPages(n, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := n / pageSize
	if n%pageSize != 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the items on page (1-based) and the total page count.
// A page past the end yields an empty slice, not an error.
func Paginate[T any](items []T, page, pageSize int) ([]T, int) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	total := TotalPages(len(items), pageSize)
	if page > total {
		return []T{}, total
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, total
	}
	end := min(start+pageSize, len(items))
	return items[start:end], total
}

// Mark is one entry of a page bar: a page number or a gap.
type Mark struct {
	Page int  `json:"page,omitempty"`
	Gap  bool `json:"gap,omitempty"`
}

func (m Mark) String() string {
	if m.Gap {
		return "..."
	}
	return strconv.Itoa(m.Page)
}

// PageWindow returns the page bar for current out of total: the first and
// last pages, every page within WindowDelta of current, and a single gap
// marker wherever more than WindowDelta pages are skipped. Shorter runs are
// listed in full. The result never holds more than 2*WindowDelta+7 marks,
// however large total is.
func PageWindow(current, total int) []Mark {
	if total < 1 {
		total = 1
	}
	current = max(1, min(current, total))

	keep := []int{1}
	lo := max(2, current-WindowDelta)
	hi := min(total-1, current+WindowDelta)
	for p := lo; p <= hi; p++ {
		keep = append(keep, p)
	}
	if total > 1 {
		keep = append(keep, total)
	}

	marks := make([]Mark, 0, len(keep)+2*WindowDelta+2)
	last := 0
	for _, p := range keep {
		if skipped := p - last - 1; skipped > WindowDelta {
			marks = append(marks, Mark{Gap: true})
		} else {
			for q := last + 1; q < p; q++ {
				marks = append(marks, Mark{Page: q})
			}
		}
		marks = append(marks, Mark{Page: p})
		last = p
	}
	return marks
}

// FormatWindow renders marks space separated, bracketing the current page.
func FormatWindow(marks []Mark, current int) string {
	parts := make([]string, len(marks))
	for i, m := range marks {
		if !m.Gap && m.Page == current {
			parts[i] = "[" + m.String() + "]"
		} else {
			parts[i] = m.String()
		}
	}
	return strings.Join(parts, " ")
}
