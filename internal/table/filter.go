package table

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar-day format accepted by date filters.
const DateLayout = "2006-01-02"

// Kind is the matching rule of a filter descriptor.
type Kind int

const (
	ExactMatch Kind = iota
	MultiMatch
	Date
	DateRange
)

func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return "exactMatch"
	case MultiMatch:
		return "multiMatch"
	case Date:
		return "date"
	case DateRange:
		return "dateRange"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor describes one filter offered for a table.
type Descriptor struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Label   string   `json:"label"`
	Options []string `json:"options,omitempty"`
	// Dynamic descriptors take their options from the current collection.
	Dynamic bool `json:"dynamic,omitempty"`
}

// FromKey and ToKey name the raw sub-keys that carry date range bounds.
func FromKey(key string) string { return key + "_from" }
func ToKey(key string) string   { return key + "_to" }

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Include reports whether rec satisfies every rule in q: the search text and
// each filter are ANDed together.
func (s *Schema[T]) Include(rec T, q Query) bool {
	if !s.matchSearch(rec, q.Search) {
		return false
	}
	for key, v := range q.Filters {
		d, ok := s.byKey[key]
		if !ok || v.IsZero() {
			continue
		}
		if !s.matchFilter(rec, d, v) {
			return false
		}
	}
	return true
}

// Filter returns the records of items that satisfy q, in their original order.
func (s *Schema[T]) Filter(items []T, q Query) []T {
	out := make([]T, 0, len(items))
	for _, rec := range items {
		if s.Include(rec, q) {
			out = append(out, rec)
		}
	}
	return out
}

// Options returns the sorted distinct non-empty values of key across items.
func (s *Schema[T]) Options(items []T, key string) []string {
	f, ok := s.fields[key]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range items {
		v := f.text(rec, s.loc)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b string) int {
		return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

func (s *Schema[T]) matchSearch(rec T, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range s.searchable {
		if strings.Contains(strings.ToLower(f.Text(rec)), needle) {
			return true
		}
	}
	return false
}

func (s *Schema[T]) matchFilter(rec T, d Descriptor, v Value) bool {
	f := s.fields[d.Key]
	switch d.Kind {
	case ExactMatch:
		if v.Scalar == "" {
			return true
		}
		return f.text(rec, s.loc) == v.Scalar
	case MultiMatch:
		if len(v.List) == 0 {
			return true
		}
		return slices.Contains(v.List, f.text(rec, s.loc))
	case Date:
		if v.From.IsZero() {
			return true
		}
		t := f.Date(rec)
		if t.IsZero() {
			return false
		}
		return !t.Before(StartOfDay(v.From, s.loc)) && !t.After(EndOfDay(v.From, s.loc))
	case DateRange:
		t := f.Date(rec)
		if t.IsZero() {
			return false
		}
		if !v.From.IsZero() && t.Before(StartOfDay(v.From, s.loc)) {
			return false
		}
		if !v.To.IsZero() && t.After(EndOfDay(v.To, s.loc)) {
			return false
		}
		return true
	}
	return true
}

// ParseFilters turns raw key=value pairs into Filters using descs. Multi-match
// values are comma separated; date range bounds arrive as <key>_from and
// <key>_to; dates use DateLayout in loc. Empty values are dropped.
func ParseFilters(descs []Descriptor, raw map[string]string, loc *time.Location) (Filters, error) {
	if loc == nil {
		loc = time.UTC
	}
	consumed := make(map[string]bool, len(raw))
	out := Filters{}
	for _, d := range descs {
		switch d.Kind {
		case ExactMatch:
			if s, ok := raw[d.Key]; ok {
				consumed[d.Key] = true
				if s = strings.TrimSpace(s); s != "" {
					out[d.Key] = Scalar(s)
				}
			}
		case MultiMatch:
			if s, ok := raw[d.Key]; ok {
				consumed[d.Key] = true
				var list []string
				for _, part := range strings.Split(s, ",") {
					if part = strings.TrimSpace(part); part != "" {
						list = append(list, part)
					}
				}
				if len(list) > 0 {
					out[d.Key] = List(list...)
				}
			}
		case Date:
			if s, ok := raw[d.Key]; ok {
				consumed[d.Key] = true
				day, err := parseDay(s, loc)
				if err != nil {
					return nil, fmt.Errorf("filter %s: %w", d.Key, err)
				}
				if !day.IsZero() {
					out[d.Key] = On(day)
				}
			}
		case DateRange:
			var v Value
			for _, sub := range []string{FromKey(d.Key), ToKey(d.Key)} {
				s, ok := raw[sub]
				if !ok {
					continue
				}
				consumed[sub] = true
				day, err := parseDay(s, loc)
				if err != nil {
					return nil, fmt.Errorf("filter %s: %w", sub, err)
				}
				if sub == FromKey(d.Key) {
					v.From = day
				} else {
					v.To = day
				}
			}
			if !v.IsZero() {
				out[d.Key] = v
			}
		}
	}
	for key := range raw {
		if !consumed[key] {
			return nil, fmt.Errorf("filter %q: %w", key, ErrUnknownKey)
		}
	}
	return out, nil
}

// FormatFilters is the inverse of ParseFilters: it flattens f into raw
// key=value pairs, splitting date ranges into their sub-keys.
func FormatFilters(descs []Descriptor, f Filters) map[string]string {
	out := make(map[string]string)
	for _, d := range descs {
		v, ok := f[d.Key]
		if !ok || v.IsZero() {
			continue
		}
		switch d.Kind {
		case ExactMatch:
			out[d.Key] = v.Scalar
		case MultiMatch:
			out[d.Key] = strings.Join(v.List, ",")
		case Date:
			out[d.Key] = v.From.Format(DateLayout)
		case DateRange:
			if !v.From.IsZero() {
				out[FromKey(d.Key)] = v.From.Format(DateLayout)
			}
			if !v.To.IsZero() {
				out[ToKey(d.Key)] = v.To.Format(DateLayout)
			}
		}
	}
	return out
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return day, nil
}
