package services

import (
	"context"
	"errors"
	"time"

	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

// ApprovalRepository defines persistence operations for approvals.
type ApprovalRepository interface {
	Get(ctx context.Context, id int) (types.Approval, error)
	List(ctx context.Context) ([]types.Approval, error)
	LatestFor(ctx context.Context, applicantID int, resourceType types.ResourceType, resourceID int) (types.Approval, error)
	Create(ctx context.Context, approval types.Approval) (types.Approval, error)
	Review(ctx context.Context, id int, reviewerID int, decision types.Decision, expiresAt *time.Time, audit types.AuditEntry) (types.Approval, error)
}

// ApprovalService governs the download-approval lifecycle:
// pending -> approved | rejected, decided exactly once.
type ApprovalService struct {
	repo  ApprovalRepository
	audit AuditSink
	now   func() time.Time
}

func NewApprovalService(repo ApprovalRepository, audit AuditSink) *ApprovalService {
	return &ApprovalService{
		repo:  repo,
		audit: audit,
		now:   time.Now,
	}
}

// Request creates a pending approval. There is no uniqueness constraint:
// a user may hold multiple outstanding requests for the same resource, and
// the most recently created one is authoritative.
func (s *ApprovalService) Request(ctx context.Context, applicant types.User, resourceType types.ResourceType, resourceID int, purpose string, ip string) (types.Approval, error) {
	created, err := s.repo.Create(ctx, types.Approval{
		ApplicantID:  applicant.ID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Purpose:      purpose,
	})
	if err != nil {
		return types.Approval{}, err
	}

	_ = s.audit.Record(ctx, types.AuditEntry{
		ActorID:      ActorRef(applicant),
		Action:       "request_approval",
		ResourceType: string(resourceType),
		ResourceID:   &resourceID,
		IP:           ip,
		Result:       types.AuditOK,
	})
	return created, nil
}

// Review decides a pending approval. An approved decision with a positive
// TTL expires ttlMinutes from now; without a TTL the grant never expires
// (see types.Approval.ExpiresAt). On a rejection any supplied TTL is
// ignored. The decision and its audit entry
// commit as one transaction; a concurrent reviewer of the same record
// observes store.ErrInvalidState.
func (s *ApprovalService) Review(ctx context.Context, reviewer types.User, id int, decision types.Decision, ttlMinutes *int, ip string) (types.Approval, error) {
	if decision != types.DecisionApproved && decision != types.DecisionRejected {
		return types.Approval{}, store.ErrInvalidState
	}

	var expiresAt *time.Time
	if decision == types.DecisionApproved && ttlMinutes != nil && *ttlMinutes > 0 {
		t := s.now().Add(time.Duration(*ttlMinutes) * time.Minute)
		expiresAt = &t
	}

	entry := types.AuditEntry{
		ActorID:      ActorRef(reviewer),
		Action:       "review_approval",
		ResourceType: "approval",
		ResourceID:   &id,
		IP:           ip,
		Result:       types.AuditOK,
		Detail:       string(decision),
	}

	reviewed, err := s.repo.Review(ctx, id, reviewer.ID, decision, expiresAt, entry)
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			_ = s.audit.Record(ctx, types.AuditEntry{
				ActorID:      ActorRef(reviewer),
				Action:       "review_approval",
				ResourceType: "approval",
				ResourceID:   &id,
				IP:           ip,
				Result:       types.AuditDeny,
				Detail:       "already decided",
			})
		}
		return types.Approval{}, err
	}
	return reviewed, nil
}

// LatestFor returns the applicant's most recent approval for a resource.
func (s *ApprovalService) LatestFor(ctx context.Context, applicantID int, resourceType types.ResourceType, resourceID int) (types.Approval, error) {
	return s.repo.LatestFor(ctx, applicantID, resourceType, resourceID)
}

// List returns all approvals, newest first.
func (s *ApprovalService) List(ctx context.Context) ([]types.Approval, error) {
	return s.repo.List(ctx)
}
