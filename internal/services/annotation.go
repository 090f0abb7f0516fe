package services

import (
	"context"

	"github.com/medimg-lab/apiserver/types"
)

// AnnotationRepository defines persistence operations for annotations.
type AnnotationRepository interface {
	Get(ctx context.Context, id int) (types.Annotation, error)
	ListBySample(ctx context.Context, sampleID int) ([]types.Annotation, error)
	Create(ctx context.Context, anno types.Annotation) (types.Annotation, error)
	Review(ctx context.Context, id int, reviewerID int, status types.AnnoStatus) (types.Annotation, error)
}

// AnnotationService encapsulates annotation use-cases. Annotations carry a
// per-sample version counter and a one-shot review state.
type AnnotationService struct {
	repo    AnnotationRepository
	samples SampleRepository
	audit   AuditSink
}

func NewAnnotationService(repo AnnotationRepository, samples SampleRepository, audit AuditSink) *AnnotationService {
	return &AnnotationService{repo: repo, samples: samples, audit: audit}
}

// Create attaches a new annotation to a sample. The version number is
// assigned by the repository as max(existing)+1 for that sample.
func (s *AnnotationService) Create(ctx context.Context, author types.User, sampleID int, annoType types.AnnoType, payload string, ip string) (types.Annotation, error) {
	if _, err := s.samples.Get(ctx, sampleID); err != nil {
		return types.Annotation{}, err
	}

	created, err := s.repo.Create(ctx, types.Annotation{
		SampleID:    sampleID,
		AuthorID:    author.ID,
		AnnoType:    annoType,
		PayloadJSON: payload,
	})
	if err != nil {
		return types.Annotation{}, err
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(author),
		Action:       "create_annotation",
		ResourceType: string(types.ResourceSample),
		ResourceID:   &sampleID,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return created, nil
}

// ListBySample returns a sample's annotations in version order.
func (s *AnnotationService) ListBySample(ctx context.Context, sampleID int) ([]types.Annotation, error) {
	if _, err := s.samples.Get(ctx, sampleID); err != nil {
		return nil, err
	}
	return s.repo.ListBySample(ctx, sampleID)
}

// Review moves a submitted annotation to approved or rejected. The caller
// enforces the reviewer's role; status transitions only from submitted,
// and a second review fails rather than being silently ignored.
func (s *AnnotationService) Review(ctx context.Context, reviewer types.User, id int, status types.AnnoStatus, ip string) (types.Annotation, error) {
	reviewed, err := s.repo.Review(ctx, id, reviewer.ID, status)
	if err != nil {
		return types.Annotation{}, err
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(reviewer),
		Action:       "review_annotation",
		ResourceType: string(types.ResourceSample),
		ResourceID:   &reviewed.SampleID,
		IP:           ip,
		Result:       types.AuditOK,
		Detail:       string(status),
	})
	return reviewed, nil
}
