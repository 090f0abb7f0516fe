package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medimg-lab/apiserver/types"
)

// DatasetRepository handles persistence for datasets.
type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Get(ctx context.Context, id int) (types.Dataset, error) {
	const query = `
		SELECT id, name, description, version, visibility, created_by, created_at
		FROM datasets
		WHERE id = $1`
	var dataset types.Dataset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&dataset.ID,
		&dataset.Name,
		&dataset.Description,
		&dataset.Version,
		&dataset.Visibility,
		&dataset.CreatedBy,
		&dataset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Dataset{}, ErrNotFound
		}
		return types.Dataset{}, err
	}
	return dataset, nil
}

// ListVisible returns datasets readable by the given viewer. Privileged
// viewers see everything; researchers see group datasets plus their own
// private ones. The filter runs in SQL so hidden rows never leave the
// database.
func (r *DatasetRepository) ListVisible(ctx context.Context, viewer types.User) ([]types.Dataset, error) {
	const listAll = `
		SELECT id, name, description, version, visibility, created_by, created_at
		FROM datasets
		ORDER BY id`
	const listFiltered = `
		SELECT id, name, description, version, visibility, created_by, created_at
		FROM datasets
		WHERE visibility = 'group' OR created_by = $1
		ORDER BY id`

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

	datasets := make([]types.Dataset, 0)
	for rows.Next() {
		var dataset types.Dataset
		if err := rows.Scan(
			&dataset.ID,
			&dataset.Name,
			&dataset.Description,
			&dataset.Version,
			&dataset.Visibility,
			&dataset.CreatedBy,
			&dataset.CreatedAt,
		); err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (r *DatasetRepository) Create(ctx context.Context, dataset types.Dataset) (types.Dataset, error) {
	dataset.CreatedAt = time.Now()

	const query = `
		INSERT INTO datasets (name, description, version, visibility, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		dataset.Name,
		dataset.Description,
		dataset.Version,
		dataset.Visibility,
		dataset.CreatedBy,
		dataset.CreatedAt,
	).Scan(&dataset.ID); err != nil {
		return types.Dataset{}, translateUnique(err)
	}
	return dataset, nil
}

// Delete removes the dataset row. Child samples and their annotations are
// removed by the ON DELETE CASCADE constraints.
func (r *DatasetRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM datasets WHERE id = $1`
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
