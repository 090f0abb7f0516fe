package services

import (
	"context"
	"log"

	"github.com/medimg-lab/apiserver/internal/events"
	"github.com/medimg-lab/apiserver/types"
)

// AuditSink records one immutable audit entry per authorization-relevant
// action. It is injected into every gate and handler so tests can
// substitute an in-memory sink and assert exact call sequences.
type AuditSink interface {
	Record(ctx context.Context, entry types.AuditEntry) error
}

// AuditRepository defines persistence operations for audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry types.AuditEntry) (types.AuditEntry, error)
	ListRecent(ctx context.Context, limit int) ([]types.AuditEntry, error)
}

// AuditService appends entries to the audit log and optionally fans them
// out to a message broker. The database append is the system of record;
// the fanout is best-effort and never fails the caller.
type AuditService struct {
	repo      AuditRepository
	publisher events.Publisher
}

func NewAuditService(repo AuditRepository, publisher events.Publisher) *AuditService {
	return &AuditService{repo: repo, publisher: publisher}
}

// Record appends one entry. A non-positive actor id is coerced to null so
// synthetic or unresolved identities never violate the foreign key.
func (s *AuditService) Record(ctx context.Context, entry types.AuditEntry) error {
	entry.ActorID = SanitizeActorID(entry.ActorID)

	stored, err := s.repo.Insert(ctx, entry)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAudit(ctx, stored); err != nil {
			log.Printf("audit event fanout failed: %v", err)
		}
	}
	return nil
}

// ListRecent returns the most recent entries, newest first.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	return s.repo.ListRecent(ctx, limit)
}

// SanitizeActorID maps non-positive actor ids to nil.
func SanitizeActorID(id *int) *int {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

// ActorRef returns a pointer to the user's id suitable for an audit entry,
// or nil when the id is not positive.
func ActorRef(user types.User) *int {
	if user.ID <= 0 {
		return nil
	}
	id := user.ID
	return &id
}
