package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/medimg-lab/apiserver/types"
)

// AuditRepository handles persistence for the append-only audit log.
// Entries are only ever inserted; there is no update or delete path.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAuditQuery = `
	INSERT INTO audit_logs (actor_id, action, resource_type, resource_id, ip, result, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

func (r *AuditRepository) Insert(ctx context.Context, entry types.AuditEntry) (types.AuditEntry, error) {
	entry.CreatedAt = time.Now()

	if err := r.db.QueryRowContext(
		ctx,
		insertAuditQuery,
		entry.ActorID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.IP,
		entry.Result,
		entry.Detail,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return types.AuditEntry{}, err
	}
	return entry, nil
}

// insertAuditTx appends an entry inside an open transaction, used where a
// state transition and its audit record must commit as one unit.
func insertAuditTx(ctx context.Context, tx *sql.Tx, entry types.AuditEntry) (types.AuditEntry, error) {
	entry.CreatedAt = time.Now()

	if err := tx.QueryRowContext(
		ctx,
		insertAuditQuery,
		entry.ActorID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.IP,
		entry.Result,
		entry.Detail,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return types.AuditEntry{}, err
	}
	return entry, nil
}

// ListRecent returns the most recent entries, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	if limit < 1 {
		limit = 200
	}

	const query = `
		SELECT id, actor_id, action, resource_type, resource_id, ip, result, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.AuditEntry, 0, limit)
	for rows.Next() {
		var entry types.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.IP,
			&entry.Result,
			&entry.Detail,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
