package table

import (
	"cmp"
	"slices"
	"strings"
)

// Compare orders a and b by the field key: dates by instant, numbers by
// value, text case-insensitively. Descending inverts the result. Unknown
// keys compare equal.
func (s *Schema[T]) Compare(a, b T, key string, dir Direction) int {
	f, ok := s.fields[key]
	if !ok {
		return 0
	}
	var c int
	switch f.Kind {
	case DateField:
		c = f.Date(a).Compare(f.Date(b))
	case NumberField:
		c = cmp.Compare(f.Number(a), f.Number(b))
	default:
		c = strings.Compare(strings.ToLower(f.Text(a)), strings.ToLower(f.Text(b)))
	}
	if dir == Descending {
		return -c
	}
	return c
}

// Sort returns a stably sorted copy of items. An empty key returns the
// items in their original order.
func (s *Schema[T]) Sort(items []T, key string, dir Direction) []T {
	out := slices.Clone(items)
	if key == "" {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return s.Compare(a, b, key, dir)
	})
	return out
}
