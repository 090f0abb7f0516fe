package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medimg-lab/apiserver/types"
)

// SampleRepository handles persistence for samples.
type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

const sampleColumns = `id, dataset_id, file_path, sha256, mime, created_by, created_at`

func scanSample(row interface{ Scan(...any) error }) (types.Sample, error) {
	var sample types.Sample
	err := row.Scan(
		&sample.ID,
		&sample.DatasetID,
		&sample.FilePath,
		&sample.SHA256,
		&sample.MIME,
		&sample.CreatedBy,
		&sample.CreatedAt,
	)
	return sample, err
}

func (r *SampleRepository) Get(ctx context.Context, id int) (types.Sample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE id = $1`
	sample, err := scanSample(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Sample{}, ErrNotFound
		}
		return types.Sample{}, err
	}
	return sample, nil
}

func (r *SampleRepository) GetBySHA256(ctx context.Context, digest string) (types.Sample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE sha256 = $1`
	sample, err := scanSample(r.db.QueryRowContext(ctx, query, digest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Sample{}, ErrNotFound
		}
		return types.Sample{}, err
	}
	return sample, nil
}

// ListByDataset returns the dataset's samples, newest first.
func (r *SampleRepository) ListByDataset(ctx context.Context, datasetID int) ([]types.Sample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM samples
		WHERE dataset_id = $1
		ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSamples(rows)
}

// ListVisible returns samples whose parent dataset is readable by the
// given viewer, mirroring DatasetRepository.ListVisible.
func (r *SampleRepository) ListVisible(ctx context.Context, viewer types.User) ([]types.Sample, error) {
	const listAll = `
		SELECT s.id, s.dataset_id, s.file_path, s.sha256, s.mime, s.created_by, s.created_at
		FROM samples s
		ORDER BY s.id DESC`
	const listFiltered = `
		SELECT s.id, s.dataset_id, s.file_path, s.sha256, s.mime, s.created_by, s.created_at
		FROM samples s
		JOIN datasets d ON d.id = s.dataset_id
		WHERE d.visibility = 'group' OR d.created_by = $1
		ORDER BY s.id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if viewer.Role.Privileged() {
		rows, err = r.db.QueryContext(ctx, listAll)
	} else {
		rows, err = r.db.QueryContext(ctx, listFiltered, viewer.ID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSamples(rows)
}

func collectSamples(rows *sql.Rows) ([]types.Sample, error) {
	samples := make([]types.Sample, 0)
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (r *SampleRepository) Create(ctx context.Context, sample types.Sample) (types.Sample, error) {
	sample.CreatedAt = time.Now()

	const query = `
		INSERT INTO samples (dataset_id, file_path, sha256, mime, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		sample.DatasetID,
		sample.FilePath,
		sample.SHA256,
		sample.MIME,
		sample.CreatedBy,
		sample.CreatedAt,
	).Scan(&sample.ID); err != nil {
		return types.Sample{}, translateUnique(err)
	}
	return sample, nil
}

func (r *SampleRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM samples WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
