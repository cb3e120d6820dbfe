package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Destination is an export target.
type Destination interface {
	// Write stores the JSONL payload.
	Write(ctx context.Context, data []byte) error
	String() string
}

// S3Options configures s3:// destinations.
type S3Options struct {
	Region   string
	Endpoint string // custom endpoint (MinIO and similar); enables path-style addressing
}

// ParseDestination resolves raw to a destination. "s3://bucket/key" selects
// S3; "-" is stdout; anything else is a file path.
func ParseDestination(ctx context.Context, raw string, opts S3Options) (Destination, error) {
	switch {
	case raw == "":
		return nil, fmt.Errorf("empty export destination")
	case raw == "-":
		return &FileDestination{stdout: true}, nil
	case strings.HasPrefix(raw, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
		if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return nil, fmt.Errorf("invalid S3 destination %q (want s3://bucket/key)", raw)
		}
		return NewS3Destination(ctx, bucket, key, opts.Region, opts.Endpoint)
	}
	return &FileDestination{Path: raw}, nil
}

// FileDestination writes the payload to a local file, replacing it
// atomically.
type FileDestination struct {
	Path   string
	stdout bool
}

func (d *FileDestination) String() string {
	if d.stdout {
		return "stdout"
	}
	return d.Path
}

func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.stdout {
		_, err := os.Stdout.Write(data)
		return err
	}
	dir := filepath.Dir(d.Path)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), d.Path)
}
