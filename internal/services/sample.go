package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

// allowedExtensions is the upload allow-list for image files.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// ErrBadExtension signals an upload with a file type outside the allow-list.
var ErrBadExtension = errors.New("file type not allowed")

// BlobStore is the slice of object storage the services depend on.
// *storage.Storage satisfies it; tests substitute an in-memory fake.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Stat(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// SampleRepository defines persistence operations for samples.
type SampleRepository interface {
	Get(ctx context.Context, id int) (types.Sample, error)
	GetBySHA256(ctx context.Context, digest string) (types.Sample, error)
	ListByDataset(ctx context.Context, datasetID int) ([]types.Sample, error)
	ListVisible(ctx context.Context, viewer types.User) ([]types.Sample, error)
	Create(ctx context.Context, sample types.Sample) (types.Sample, error)
	Delete(ctx context.Context, id int) error
}

// SampleService encapsulates sample use-cases: upload, read gating, and
// ownership-based deletion.
type SampleService struct {
	repo     SampleRepository
	datasets DatasetRepository
	blobs    BlobStore
	audit    AuditSink
}

func NewSampleService(repo SampleRepository, datasets DatasetRepository, blobs BlobStore, audit AuditSink) *SampleService {
	return &SampleService{repo: repo, datasets: datasets, blobs: blobs, audit: audit}
}

// Upload validates, stores, and records a new sample file. The content
// checksum is unique across the whole system: the same bytes can never be
// stored twice, regardless of dataset.
func (s *SampleService) Upload(ctx context.Context, actor types.User, datasetID int, filename, mime string, data []byte, ip string) (types.Sample, error) {
	deny := func(detail string) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(actor),
			Action:       "upload_sample",
			ResourceType: string(types.ResourceDataset),
			ResourceID:   &datasetID,
			IP:           ip,
			Result:       types.AuditDeny,
			Detail:       detail,
		})
	}

	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		deny("bad extension: " + ext)
		return types.Sample{}, ErrBadExtension
	}

	if _, err := s.datasets.Get(ctx, datasetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			deny("dataset not found")
		}
		return types.Sample{}, err
	}

	digest := sha256.Sum256(data)
	hexDigest := hex.EncodeToString(digest[:])

	if _, err := s.repo.GetBySHA256(ctx, hexDigest); err == nil {
		deny("duplicate sha256")
		return types.Sample{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Sample{}, err
	}

	key, err := storage.SampleKey(datasetID, filename)
	if err != nil {
		deny("invalid filename")
		return types.Sample{}, ErrBadExtension
	}

	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		return types.Sample{}, err
	}

	created, err := s.repo.Create(ctx, types.Sample{
		DatasetID: datasetID,
		FilePath:  key,
		SHA256:    hexDigest,
		MIME:      mime,
		CreatedBy: actor.ID,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a checksum race at commit time.
			deny("duplicate sha256")
		}
		return types.Sample{}, err
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(actor),
		Action:       "upload_sample",
		ResourceType: string(types.ResourceSample),
		ResourceID:   &created.ID,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return created, nil
}

// Get fetches a sample detail, enforcing the parent dataset's visibility.
func (s *SampleService) Get(ctx context.Context, viewer types.User, id int, ip string) (types.Sample, error) {
	sample, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Sample{}, err
	}

	dataset, err := s.datasets.Get(ctx, sample.DatasetID)
	if err != nil {
		return types.Sample{}, err
	}

	if !CanViewSample(viewer, dataset) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(viewer),
			Action:       "get_sample",
			ResourceType: string(types.ResourceSample),
			ResourceID:   &id,
			IP:           ip,
			Result:       types.AuditDeny,
			Detail:       "private dataset",
		})
		return types.Sample{}, ErrForbidden
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(viewer),
		Action:       "get_sample",
		ResourceType: string(types.ResourceSample),
		ResourceID:   &id,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return sample, nil
}

// ListByDataset lists a dataset's samples, newest first, gated on the
// dataset's visibility.
func (s *SampleService) ListByDataset(ctx context.Context, viewer types.User, datasetID int) ([]types.Sample, error) {
	dataset, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !CanViewDataset(viewer, dataset) {
		return nil, ErrForbidden
	}
	return s.repo.ListByDataset(ctx, datasetID)
}

// List returns all samples whose parent dataset the viewer may read.
func (s *SampleService) List(ctx context.Context, viewer types.User) ([]types.Sample, error) {
	return s.repo.ListVisible(ctx, viewer)
}

// Delete removes a sample. Only the uploader or a privileged user may
// delete. The stored file is removed best-effort after the database row.
func (s *SampleService) Delete(ctx context.Context, actor types.User, id int, ip string) error {
	sample, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !CanDelete(actor, sample.CreatedBy) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(actor),
			Action:       "delete_sample",
			ResourceType: string(types.ResourceSample),
			ResourceID:   &id,
			IP:           ip,
			Result:       types.AuditDeny,
			Detail:       "not owner",
		})
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, sample.FilePath); err != nil {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(actor),
			Action:       "delete_sample",
			ResourceType: string(types.ResourceSample),
			ResourceID:   &id,
			IP:           ip,
			Result:       types.AuditError,
			Detail:       "artifact removal failed: " + sample.FilePath,
		})
		return nil
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(actor),
		Action:       "delete_sample",
		ResourceType: string(types.ResourceSample),
		ResourceID:   &id,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return nil
}
