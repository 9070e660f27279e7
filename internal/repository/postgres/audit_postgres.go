package postgres

import (
	"context"
	"database/sql"

	"npmdeck/internal/model"
	"npmdeck/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

// Create inserts a new audit event row.
func (r *AuditPostgres) Create(ctx context.Context, ev *model.AuditEvent) error {
	const q = `
		INSERT INTO audit_events (id, request_id, actor, method, path, status, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		ev.ID,
		ev.RequestID,
		ev.Actor,
		ev.Method,
		ev.Path,
		ev.Status,
		ev.LatencyMs,
		ev.CreatedAt,
	)
	return err
}

// List returns audit events newest first using LIMIT/OFFSET pagination and a
// total count.
func (r *AuditPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.AuditEvent], error) {
	const qCount = `SELECT COUNT(*) FROM audit_events`

	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, request_id, actor, method, path, status, latency_ms, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AuditEvent, 0, pq.Limit)
	for rows.Next() {
		var ev model.AuditEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.RequestID,
			&ev.Actor,
			&ev.Method,
			&ev.Path,
			&ev.Status,
			&ev.LatencyMs,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.AuditEvent]{Items: items, Total: total}, nil
}
