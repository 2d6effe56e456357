package service

import (
	"context"
	"io"
)

// UploadService stores user-provided post images and returns the public URL
// they will be served from.
type UploadService interface {
	// SaveImage validates and persists an uploaded image. The original
	// filename is only used for its extension.
	SaveImage(ctx context.Context, filename string, content io.Reader, size int64) (string, error)
}
