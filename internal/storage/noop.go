package storage

import (
	"context"
	"errors"
)

// NoopUploader signals that no archive backend is configured.
type NoopUploader struct{}

// Upload always fails, marking the feature as unavailable.
func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, errors.New("storage: no uploader configured")
}
