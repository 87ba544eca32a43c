package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned by callers when no object store is wired.
var ErrNotConfigured = errors.New("object storage not configured")

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// PutOptions describes a single object upload.
type PutOptions struct {
	Key         string
	ContentType string
	Size        int64
}

// Service stores user media (avatars) in remote object storage.
type Service interface {
	// PutObject uploads body and returns a URL the object can be fetched from.
	PutObject(ctx context.Context, body io.Reader, opts PutOptions) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
