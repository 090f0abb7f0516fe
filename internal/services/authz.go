package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

// Grant is the positive result of a download authorization check. It
// carries enough information for the caller to stream the bytes: one
// sample for a per-file download, or the full sample list plus an archive
// name for a dataset download.
type Grant struct {
	ResourceType types.ResourceType
	Dataset      types.Dataset
	Samples      []types.Sample
	ArchiveName  string
}

// AuthzService gates the one truly sensitive operation: bulk or per-file
// download. Visibility and the approval workflow are orthogonal; this gate
// consults only the approval state, expiry, and storage presence.
type AuthzService struct {
	datasets  DatasetRepository
	samples   SampleRepository
	approvals ApprovalRepository
	blobs     BlobStore
	audit     AuditSink
	now       func() time.Time
}

func NewAuthzService(datasets DatasetRepository, samples SampleRepository, approvals ApprovalRepository, blobs BlobStore, audit AuditSink) *AuthzService {
	return &AuthzService{
		datasets:  datasets,
		samples:   samples,
		approvals: approvals,
		blobs:     blobs,
		audit:     audit,
		now:       time.Now,
	}
}

// AuthorizeDownload runs the download gate for a dataset or sample. Every
// call, success or failure, appends exactly one audit entry whose result
// matches the outcome. The sequence short-circuits on the first failure:
//
//  1. the resource must exist,
//  2. the caller's latest approval for it must exist,
//  3. that approval must be approved,
//  4. if the approval carries an expiry, it must be strictly in the future,
//  5. the stored artifact(s) must exist (an operator fault otherwise).
func (s *AuthzService) AuthorizeDownload(ctx context.Context, user types.User, resourceType types.ResourceType, resourceID int, ip string) (Grant, error) {
	action := "download_dataset"
	if resourceType == types.ResourceSample {
		action = "download_sample"
	}

	record := func(result types.AuditResult, detail string) {
		_ = s.audit.Record(ctx, types.AuditEntry{
			ActorID:      ActorRef(user),
			Action:       action,
			ResourceType: string(resourceType),
			ResourceID:   &resourceID,
			IP:           ip,
			Result:       result,
			Detail:       detail,
		})
	}

	grant, err := s.resolveResource(ctx, resourceType, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			record(types.AuditDeny, "not_found")
		}
		return Grant{}, err
	}

	approval, err := s.approvals.LatestFor(ctx, user.ID, resourceType, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			record(types.AuditDeny, "no_approval")
			return Grant{}, ErrNoApproval
		}
		return Grant{}, err
	}

	if approval.Decision != types.DecisionApproved {
		record(types.AuditDeny, "not_approved")
		return Grant{}, ErrNotApproved
	}

	// Expiry is compared in UTC on both sides: stored timestamps are
	// normalized at the comparison boundary, never at storage time, so a
	// naive value read back from the database cannot be compared against
	// a zoned now.
	if approval.ExpiresAt != nil && !s.now().UTC().Before(approval.ExpiresAt.UTC()) {
		record(types.AuditDeny, "approval_expired")
		return Grant{}, ErrApprovalExpired
	}

	for _, sample := range grant.Samples {
		if err := s.blobs.Stat(ctx, sample.FilePath); err != nil {
			record(types.AuditError, "storage_missing")
			return Grant{}, ErrStorageMissing
		}
	}

	record(types.AuditOK, "")
	return grant, nil
}

func (s *AuthzService) resolveResource(ctx context.Context, resourceType types.ResourceType, resourceID int) (Grant, error) {
	switch resourceType {
	case types.ResourceDataset:
		dataset, err := s.datasets.Get(ctx, resourceID)
		if err != nil {
			return Grant{}, err
		}
		samples, err := s.samples.ListByDataset(ctx, resourceID)
		if err != nil {
			return Grant{}, err
		}
		return Grant{
			ResourceType: types.ResourceDataset,
			Dataset:      dataset,
			Samples:      samples,
			ArchiveName:  fmt.Sprintf("%s.zip", dataset.Name),
		}, nil
	case types.ResourceSample:
		sample, err := s.samples.Get(ctx, resourceID)
		if err != nil {
			return Grant{}, err
		}
		return Grant{
			ResourceType: types.ResourceSample,
			Samples:      []types.Sample{sample},
		}, nil
	default:
		return Grant{}, store.ErrNotFound
	}
}
