package storage

import "context"

// UploadInput is a single blob upload.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult describes the persisted artifact.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader stores blobs, used for best-effort PDF archive copies.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}
