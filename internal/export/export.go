// Package export writes a derived table as JSONL to a local file or an
// S3-compatible bucket.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/idgen"
)

// Version is the export format version.
const Version = "1"

// Meta describes the query an export was cut from.
type Meta struct {
	Table   string            `json:"table"`
	Search  string            `json:"search,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"`
}

// Header is the first JSONL record of every export.
type Header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Meta
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WriteJSONL writes a header followed by one record per item, in order.
func WriteJSONL[T any](w io.Writer, meta Meta, items []T) (Header, error) {
	h := Header{
		Version:   Version,
		Type:      "header",
		ID:        idgen.New(idgen.ExportPrefix),
		Timestamp: time.Now().UTC(),
		Count:     len(items),
		Meta:      meta,
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(h); err != nil {
		return Header{}, fmt.Errorf("encode header: %w", err)
	}
	for i, item := range items {
		if err := enc.Encode(record{Type: meta.Table, Data: item}); err != nil {
			return Header{}, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return h, nil
}

// Export renders items and hands the payload to dest in one write.
func Export[T any](ctx context.Context, dest Destination, meta Meta, items []T) (Header, error) {
	var buf bytes.Buffer
	h, err := WriteJSONL(&buf, meta, items)
	if err != nil {
		return Header{}, err
	}
	if err := dest.Write(ctx, buf.Bytes()); err != nil {
		return Header{}, fmt.Errorf("writing to %s: %w", dest, err)
	}
	return h, nil
}
