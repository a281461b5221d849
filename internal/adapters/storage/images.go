// Package storage persists uploaded images under the public directory.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"
)

// ImageStore writes uploads into dir and returns them as urlPrefix paths
type ImageStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

// NewImageStore creates dir if needed
func NewImageStore(dir, urlPrefix string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return &ImageStore{
		dir:       dir,
		urlPrefix: urlPrefix,
		now:       time.Now,
	}, nil
}

// Save stores fh as <unixMillis>-<originalName> and returns its public path.
// A nil header means no file was attached and yields "".
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", nil
	}

	// only directory components are stripped from the client name
	original := filepath.Base(filepath.Clean("/" + filepath.FromSlash(fh.Filename)))
	if original == "/" || original == "." {
		original = "upload"
	}
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + original

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}
