package storage

import (
	"context"
	"io"
	"time"
)

// UploadInput describes a single object upload.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
}

// Service stores book cover images in remote object storage.
type Service interface {
	// Upload stores the object and returns its key.
	Upload(ctx context.Context, input UploadInput) (string, error)
	Delete(ctx context.Context, key string) error
	// PresignURL returns a time-limited GET URL for the object.
	PresignURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
