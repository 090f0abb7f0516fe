package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/medimg-lab/apiserver/config"
)

// NewBackend selects an ObjectStorage backend from config.
// Supported backends: "local" (default), "minio", "gcs".
func NewBackend(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalClient(cfg.Root)
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
