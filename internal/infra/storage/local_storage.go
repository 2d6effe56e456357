// Package storage persists uploaded post images on the local filesystem.
package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"inkwell/config"
	domainerrors "inkwell/internal/domain/errors"
	"inkwell/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultMaxImageSize = 5 << 20 // 5 MiB

var defaultAllowedExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// localStorage implements service.UploadService on the local filesystem.
// Files are written to a temp name first and renamed into place, so a
// half-written upload is never served.
type localStorage struct {
	dir           string
	maxSizeBytes  int64
	allowedExts   []string
	publicBaseURL string
	logger        *slog.Logger
}

// NewLocalStorage is the constructor for localStorage.
func NewLocalStorage(cfg *config.Config, logger *slog.Logger) (service.UploadService, error) {
	uploadCfg := cfg.Upload
	if uploadCfg == nil {
		uploadCfg = &config.UploadConfig{}
	}

	dir := uploadCfg.Dir
	if dir == "" {
		dir = "public/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create upload directory")
	}

	maxSize := uploadCfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxImageSize
	}

	exts := uploadCfg.AllowedExts
	if len(exts) == 0 {
		exts = defaultAllowedExts
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		normalized = append(normalized, strings.ToLower(ext))
	}

	return &localStorage{
		dir:           dir,
		maxSizeBytes:  maxSize,
		allowedExts:   normalized,
		publicBaseURL: strings.TrimSuffix(uploadCfg.PublicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// SaveImage validates and persists an uploaded image.
func (s *localStorage) SaveImage(_ context.Context, filename string, content io.Reader, size int64) (string, error) {
	if size <= 0 || size > s.maxSizeBytes {
		return "", errors.Wrap(domainerrors.ErrUploadInvalid, "image size out of bounds")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(s.allowedExts, ext) {
		return "", errors.Wrap(domainerrors.ErrUploadInvalid, "image extension not allowed")
	}

	name := uuid.New().String() + ext
	target := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp upload file")
	}
	tmpName := tmp.Name()

	// LimitReader guards against a client lying about the declared size.
	written, err := io.Copy(tmp, io.LimitReader(content, s.maxSizeBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)

		return "", errors.Wrap(err, "failed to write upload")
	}
	if written > s.maxSizeBytes {
		_ = os.Remove(tmpName)

		return "", errors.Wrap(domainerrors.ErrUploadInvalid, "image larger than declared size")
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)

		return "", errors.Wrap(err, "failed to move upload into place")
	}

	s.logger.Debug("Stored uploaded image", slog.String("file", name), slog.Int64("bytes", written))

	return s.publicBaseURL + path.Join("/", s.dir, name), nil
}
