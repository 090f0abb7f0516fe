package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectMissing is returned when a stored artifact that should exist
// does not. Callers treat this as an operator fault, not a user fault.
var ErrObjectMissing = errors.New("storage object missing")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object in the configured bucket.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Stat reports whether the object exists, returning ErrObjectMissing if not.
func (s *Storage) Stat(ctx context.Context, key string) error {
	return s.backend.Stat(ctx, key)
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// DeletePrefix removes every object under the given prefix.
func (s *Storage) DeletePrefix(ctx context.Context, prefix string) error {
	return s.backend.DeletePrefix(ctx, prefix)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// DatasetPrefix returns the storage prefix holding a dataset's samples.
func DatasetPrefix(datasetID int) string {
	return fmt.Sprintf("dataset_%d/", datasetID)
}

// SampleKey builds the storage key for an uploaded file. The filename must
// be a bare name: keys are always relative, so a stored path can never
// escape the storage root.
func SampleKey(datasetID int, filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", errors.New("empty filename")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errors.New("filename must not contain path separators")
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || clean == ".." {
		return "", errors.New("invalid filename")
	}
	return DatasetPrefix(datasetID) + name, nil
}
