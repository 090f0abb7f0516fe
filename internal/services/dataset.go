package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

// DatasetRepository defines persistence operations for datasets.
type DatasetRepository interface {
	Get(ctx context.Context, id int) (types.Dataset, error)
	ListVisible(ctx context.Context, viewer types.User) ([]types.Dataset, error)
	Create(ctx context.Context, dataset types.Dataset) (types.Dataset, error)
	Delete(ctx context.Context, id int) error
}

// DatasetService encapsulates dataset use-cases and the visibility gate
// around dataset reads.
type DatasetService struct {
	repo  DatasetRepository
	blobs BlobStore
	audit AuditSink
}

func NewDatasetService(repo DatasetRepository, blobs BlobStore, audit AuditSink) *DatasetService {
	return &DatasetService{repo: repo, blobs: blobs, audit: audit}
}

func (s *DatasetService) Create(ctx context.Context, actor types.User, dataset types.Dataset, ip string) (types.Dataset, error) {
	if !dataset.Visibility.Valid() {
		dataset.Visibility = types.VisibilityGroup
	}
	dataset.CreatedBy = actor.ID

	created, err := s.repo.Create(ctx, dataset)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			_ = s.audit.Record(ctx, types.AuditEntry{
				ActorID:      ActorRef(actor),
				Action:       "create_dataset",
				ResourceType: string(types.ResourceDataset),
				IP:           ip,
				Result:       types.AuditDeny,
				Detail:       "duplicate name",
			})
		}
		return types.Dataset{}, err
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(actor),
		Action:       "create_dataset",
		ResourceType: string(types.ResourceDataset),
		ResourceID:   &created.ID,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return created, nil
}

// List returns datasets visible to the viewer. Hidden rows are filtered,
// not rejected, so the aggregate action is not audited per item.
func (s *DatasetService) List(ctx context.Context, viewer types.User) ([]types.Dataset, error) {
	return s.repo.ListVisible(ctx, viewer)
}

// Get fetches a dataset detail, enforcing the visibility gate. Every
// denial and every successful fetch appends one audit entry.
func (s *DatasetService) Get(ctx context.Context, viewer types.User, id int, ip string) (types.Dataset, error) {
	dataset, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Dataset{}, err
	}

	if !CanViewDataset(viewer, dataset) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(viewer),
			Action:       "get_dataset",
			ResourceType: string(types.ResourceDataset),
			ResourceID:   &id,
			IP:           ip,
			Result:       types.AuditDeny,
			Detail:       "private dataset",
		})
		return types.Dataset{}, ErrForbidden
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(viewer),
		Action:       "get_dataset",
		ResourceType: string(types.ResourceDataset),
		ResourceID:   &id,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return dataset, nil
}

// Delete removes a dataset. Only the creator or a privileged user may
// delete; child samples and annotations are removed by the database
// cascade. The on-disk artifact directory is removed afterwards as a
// best-effort step: a filesystem failure does not roll back the database
// deletion, it is surfaced as an error-level audit entry instead.
func (s *DatasetService) Delete(ctx context.Context, actor types.User, id int, ip string) error {
	dataset, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !CanDelete(actor, dataset.CreatedBy) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(actor),
			Action:       "delete_dataset",
			ResourceType: string(types.ResourceDataset),
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

	prefix := storage.DatasetPrefix(id)
	if err := s.blobs.DeletePrefix(ctx, prefix); err != nil {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(actor),
			Action:       "delete_dataset",
			ResourceType: string(types.ResourceDataset),
			ResourceID:   &id,
			IP:           ip,
			Result:       types.AuditError,
			Detail:       fmt.Sprintf("artifact removal failed: %s", prefix),
		})
		return nil
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(actor),
		Action:       "delete_dataset",
		ResourceType: string(types.ResourceDataset),
		ResourceID:   &id,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return nil
}
