package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient stores objects as plain files under a root directory.
// Keys map onto relative paths ("dataset_<id>/<filename>").
type LocalClient struct {
	root string
}

// NewLocalClient constructs a filesystem-backed client rooted at root.
func NewLocalClient(root string) (*LocalClient, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalClient{root: abs}, nil
}

// EnsureBucket creates the root directory if it does not exist.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.root, 0o755)
}

// resolve joins a key onto the root, rejecting keys that would escape it.
func (l *LocalClient) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty storage key")
	}
	if filepath.IsAbs(key) {
		return "", errors.New("storage key must be relative")
	}
	full := filepath.Join(l.root, filepath.FromSlash(key))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", errors.New("storage key escapes root")
	}
	return full, nil
}

// Put writes an object, creating parent directories as needed.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Get opens a reader for an object.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectMissing
		}
		return nil, err
	}
	return f, nil
}

// Stat reports whether the object exists.
func (l *LocalClient) Stat(ctx context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectMissing
		}
		return err
	}
	if info.IsDir() {
		return ErrObjectMissing
	}
	return nil
}

// Delete removes an object.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DeletePrefix removes every object under the given prefix directory.
func (l *LocalClient) DeletePrefix(ctx context.Context, prefix string) error {
	full, err := l.resolve(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

// Bucket returns the root directory path.
func (l *LocalClient) Bucket() string {
	return l.root
}
