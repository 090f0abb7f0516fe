package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medimg-lab/apiserver/types"
)

// AnnotationRepository handles persistence for annotations.
type AnnotationRepository struct {
	db *sql.DB
}

func NewAnnotationRepository(db *sql.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

const annotationColumns = `id, sample_id, author_id, anno_type, payload_json, status, version, reviewed_by, reviewed_at, created_at`

func scanAnnotation(row interface{ Scan(...any) error }) (types.Annotation, error) {
	var anno types.Annotation
	err := row.Scan(
		&anno.ID,
		&anno.SampleID,
		&anno.AuthorID,
		&anno.AnnoType,
		&anno.PayloadJSON,
		&anno.Status,
		&anno.Version,
		&anno.ReviewedBy,
		&anno.ReviewedAt,
		&anno.CreatedAt,
	)
	return anno, err
}

func (r *AnnotationRepository) Get(ctx context.Context, id int) (types.Annotation, error) {
	const query = `
		SELECT ` + annotationColumns + `
		FROM annotations
		WHERE id = $1`
	anno, err := scanAnnotation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Annotation{}, ErrNotFound
		}
		return types.Annotation{}, err
	}
	return anno, nil
}

func (r *AnnotationRepository) ListBySample(ctx context.Context, sampleID int) ([]types.Annotation, error) {
	const query = `
		SELECT ` + annotationColumns + `
		FROM annotations
		WHERE sample_id = $1
		ORDER BY version`
	rows, err := r.db.QueryContext(ctx, query, sampleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	annos := make([]types.Annotation, 0)
	for rows.Next() {
		anno, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		annos = append(annos, anno)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return annos, nil
}

// Create inserts the annotation with the next version number for its
// sample, assigned as max(existing)+1 inside the insert statement. The
// unique (sample_id, version) index turns a concurrent-insert race into a
// retryable conflict instead of a duplicate version.
func (r *AnnotationRepository) Create(ctx context.Context, anno types.Annotation) (types.Annotation, error) {
	anno.CreatedAt = time.Now()
	anno.Status = types.AnnoSubmitted

	const query = `
		INSERT INTO annotations (sample_id, author_id, anno_type, payload_json, status, version, created_at)
		SELECT $1, $2, $3, $4, $5, COALESCE(MAX(version), 0) + 1, $6
		FROM annotations
		WHERE sample_id = $1
		RETURNING id, version`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		anno.SampleID,
		anno.AuthorID,
		anno.AnnoType,
		anno.PayloadJSON,
		anno.Status,
		anno.CreatedAt,
	).Scan(&anno.ID, &anno.Version); err != nil {
		return types.Annotation{}, translateUnique(err)
	}
	return anno, nil
}

// Review moves a submitted annotation to a terminal status. The update is
// a compare-and-set on the status column: if the row exists but is no
// longer submitted, ErrInvalidState is returned and the record is left
// unchanged.
func (r *AnnotationRepository) Review(ctx context.Context, id int, reviewerID int, status types.AnnoStatus) (types.Annotation, error) {
	now := time.Now()

	const query = `
		UPDATE annotations
		SET status = $1,
			reviewed_by = $2,
			reviewed_at = $3
		WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, status, reviewerID, now, id, types.AnnoSubmitted)
	if err != nil {
		return types.Annotation{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Annotation{}, err
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return types.Annotation{}, err
		}
		return types.Annotation{}, ErrInvalidState
	}

	return r.Get(ctx, id)
}
