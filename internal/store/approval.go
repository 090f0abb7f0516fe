package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medimg-lab/apiserver/types"
)

// ApprovalRepository handles persistence for download approvals.
type ApprovalRepository struct {
	db *sql.DB
}

func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const approvalColumns = `id, applicant_id, resource_type, resource_id, purpose, decision, expires_at, reviewed_by, reviewed_at, created_at`

func scanApproval(row interface{ Scan(...any) error }) (types.Approval, error) {
	var approval types.Approval
	err := row.Scan(
		&approval.ID,
		&approval.ApplicantID,
		&approval.ResourceType,
		&approval.ResourceID,
		&approval.Purpose,
		&approval.Decision,
		&approval.ExpiresAt,
		&approval.ReviewedBy,
		&approval.ReviewedAt,
		&approval.CreatedAt,
	)
	return approval, err
}

func (r *ApprovalRepository) Get(ctx context.Context, id int) (types.Approval, error) {
	const query = `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE id = $1`
	approval, err := scanApproval(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Approval{}, ErrNotFound
		}
		return types.Approval{}, err
	}
	return approval, nil
}

func (r *ApprovalRepository) List(ctx context.Context) ([]types.Approval, error) {
	const query = `
		SELECT ` + approvalColumns + `
		FROM approvals
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]types.Approval, 0)
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return approvals, nil
}

// LatestFor returns the most recently created approval for the
// (applicant, resource) pair. Older records are historical only.
func (r *ApprovalRepository) LatestFor(ctx context.Context, applicantID int, resourceType types.ResourceType, resourceID int) (types.Approval, error) {
	const query = `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE applicant_id = $1 AND resource_type = $2 AND resource_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	approval, err := scanApproval(r.db.QueryRowContext(ctx, query, applicantID, resourceType, resourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Approval{}, ErrNotFound
		}
		return types.Approval{}, err
	}
	return approval, nil
}

func (r *ApprovalRepository) Create(ctx context.Context, approval types.Approval) (types.Approval, error) {
	approval.CreatedAt = time.Now()
	approval.Decision = types.DecisionPending

	const query = `
		INSERT INTO approvals (applicant_id, resource_type, resource_id, purpose, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		approval.ApplicantID,
		approval.ResourceType,
		approval.ResourceID,
		approval.Purpose,
		approval.Decision,
		approval.CreatedAt,
	).Scan(&approval.ID); err != nil {
		return types.Approval{}, err
	}
	return approval, nil
}

// Review moves a pending approval to a terminal decision and appends the
// matching audit entry in the same transaction, so a transport timeout can
// never leave a half-committed decision/audit pair.
//
// The update is a compare-and-set on the decision column: under two
// concurrent reviews exactly one commit sees a row with decision='pending',
// the other observes ErrInvalidState.
func (r *ApprovalRepository) Review(ctx context.Context, id int, reviewerID int, decision types.Decision, expiresAt *time.Time, audit types.AuditEntry) (types.Approval, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Approval{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	const update = `
		UPDATE approvals
		SET decision = $1,
			expires_at = $2,
			reviewed_by = $3,
			reviewed_at = $4
		WHERE id = $5 AND decision = $6`
	result, err := tx.ExecContext(ctx, update, decision, expiresAt, reviewerID, now, id, types.DecisionPending)
	if err != nil {
		return types.Approval{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Approval{}, err
	}
	if affected == 0 {
		// Distinguish a missing record from an already-decided one.
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM approvals WHERE id = $1)`, id).Scan(&exists); err != nil {
			return types.Approval{}, err
		}
		if !exists {
			return types.Approval{}, ErrNotFound
		}
		return types.Approval{}, ErrInvalidState
	}

	if _, err := insertAuditTx(ctx, tx, audit); err != nil {
		return types.Approval{}, err
	}

	const fetch = `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE id = $1`
	approval, err := scanApproval(tx.QueryRowContext(ctx, fetch, id))
	if err != nil {
		return types.Approval{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Approval{}, err
	}
	return approval, nil
}
