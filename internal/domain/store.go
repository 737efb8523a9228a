package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ActionStore persists the action audit trail.
type ActionStore interface {
	Record(ctx context.Context, rec ActionRecord) error
	List(ctx context.Context, opts ListOpts) ([]ActionRecord, error)
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]ActionRecord, error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}
