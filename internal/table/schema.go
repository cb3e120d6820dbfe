package table

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FieldKind is the comparison domain of a field.
type FieldKind int

const (
	TextField FieldKind = iota
	NumberField
	DateField
)

func (k FieldKind) String() string {
	switch k {
	case TextField:
		return "text"
	case NumberField:
		return "number"
	case DateField:
		return "date"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field is a typed accessor for one attribute of T. Only the accessor that
// matches Kind is used.
type Field[T any] struct {
	Key    string
	Kind   FieldKind
	Text   func(T) string
	Number func(T) float64
	Date   func(T) time.Time
}

// TextOf declares a text field.
func TextOf[T any](key string, fn func(T) string) Field[T] {
	return Field[T]{Key: key, Kind: TextField, Text: fn}
}

// NumberOf declares a numeric field.
func NumberOf[T any](key string, fn func(T) float64) Field[T] {
	return Field[T]{Key: key, Kind: NumberField, Number: fn}
}

// DateOf declares a date field.
func DateOf[T any](key string, fn func(T) time.Time) Field[T] {
	return Field[T]{Key: key, Kind: DateField, Date: fn}
}

// text renders the field as a string for matching. Numbers use their
// shortest decimal form; dates use the calendar day.
func (f Field[T]) text(rec T, loc *time.Location) string {
	switch f.Kind {
	case NumberField:
		return strconv.FormatFloat(f.Number(rec), 'f', -1, 64)
	case DateField:
		d := f.Date(rec)
		if d.IsZero() {
			return ""
		}
		return d.In(loc).Format(DateLayout)
	default:
		return f.Text(rec)
	}
}

// Config declares a schema.
type Config[T any] struct {
	Fields      []Field[T]
	Searchable  []string
	Descriptors []Descriptor
	// Location anchors calendar-day arithmetic for date filters. Defaults to UTC.
	Location *time.Location
}

// Schema is a validated field-accessor table for records of type T.
type Schema[T any] struct {
	fields      map[string]Field[T]
	order       []string
	searchable  []Field[T]
	descriptors []Descriptor
	byKey       map[string]Descriptor
	loc         *time.Location
}

// ErrUnknownKey is returned when a query names a field the schema lacks.
var ErrUnknownKey = errors.New("unknown key")

// NewSchema validates cfg and builds a schema. Any inconsistency between
// fields, searchable keys and descriptors is reported here rather than at
// filter time.
func NewSchema[T any](cfg Config[T]) (*Schema[T], error) {
	s := &Schema[T]{
		fields: make(map[string]Field[T], len(cfg.Fields)),
		byKey:  make(map[string]Descriptor, len(cfg.Descriptors)),
		loc:    cfg.Location,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}

	for _, f := range cfg.Fields {
		if f.Key == "" {
			return nil, errors.New("field with empty key")
		}
		if _, dup := s.fields[f.Key]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Key)
		}
		var ok bool
		switch f.Kind {
		case TextField:
			ok = f.Text != nil
		case NumberField:
			ok = f.Number != nil
		case DateField:
			ok = f.Date != nil
		}
		if !ok {
			return nil, fmt.Errorf("field %q: missing %s accessor", f.Key, f.Kind)
		}
		s.fields[f.Key] = f
		s.order = append(s.order, f.Key)
	}

	for _, key := range cfg.Searchable {
		f, ok := s.fields[key]
		if !ok {
			return nil, fmt.Errorf("searchable field %q: %w", key, ErrUnknownKey)
		}
		if f.Kind != TextField {
			return nil, fmt.Errorf("searchable field %q is %s, want text", key, f.Kind)
		}
		s.searchable = append(s.searchable, f)
	}

	for _, d := range cfg.Descriptors {
		f, ok := s.fields[d.Key]
		if !ok {
			return nil, fmt.Errorf("filter %q: %w", d.Key, ErrUnknownKey)
		}
		if _, dup := s.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate filter %q", d.Key)
		}
		switch d.Kind {
		case Date, DateRange:
			if f.Kind != DateField {
				return nil, fmt.Errorf("filter %q is %s but field is %s", d.Key, d.Kind, f.Kind)
			}
		case ExactMatch, MultiMatch:
			if f.Kind == DateField {
				return nil, fmt.Errorf("filter %q is %s but field is a date", d.Key, d.Kind)
			}
		default:
			return nil, fmt.Errorf("filter %q: unknown kind %d", d.Key, int(d.Kind))
		}
		s.byKey[d.Key] = d
		s.descriptors = append(s.descriptors, d)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level schema declarations.
func MustSchema[T any](cfg Config[T]) *Schema[T] {
	s, err := NewSchema(cfg)
	if err != nil {
		panic("table: " + err.Error())
	}
	return s
}

// Location returns the zone used for calendar-day arithmetic.
func (s *Schema[T]) Location() *time.Location { return s.loc }

// Keys returns the field keys in declaration order.
func (s *Schema[T]) Keys() []string { return append([]string(nil), s.order...) }

// Field returns the field for key.
func (s *Schema[T]) Field(key string) (Field[T], bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Descriptor returns the filter descriptor for key.
func (s *Schema[T]) Descriptor(key string) (Descriptor, bool) {
	d, ok := s.byKey[key]
	return d, ok
}

// Descriptors returns the filter descriptors. Descriptors marked Dynamic
// get their options from the distinct values present in items.
func (s *Schema[T]) Descriptors(items []T) []Descriptor {
	out := make([]Descriptor, len(s.descriptors))
	for i, d := range s.descriptors {
		if d.Dynamic {
			d.Options = s.Options(items, d.Key)
		} else {
			d.Options = append([]string(nil), d.Options...)
		}
		out[i] = d
	}
	return out
}

// Validate checks that q only names keys this schema knows.
func (s *Schema[T]) Validate(q Query) error {
	if q.SortKey != "" {
		if _, ok := s.fields[q.SortKey]; !ok {
			return fmt.Errorf("sort %q: %w", q.SortKey, ErrUnknownKey)
		}
	}
	for key := range q.Filters {
		if _, ok := s.byKey[key]; !ok {
			return fmt.Errorf("filter %q: %w", key, ErrUnknownKey)
		}
	}
	return nil
}
