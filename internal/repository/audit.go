package repository

import (
	"context"

	"npmdeck/internal/model"
)

// AuditRepository defines data access for audit events. Strictly persistence
// operations, no business logic.
type AuditRepository interface {
	// Create inserts a new audit event row.
	Create(ctx context.Context, ev *model.AuditEvent) error

	// List returns a paginated list of audit events, newest first, plus the
	// total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.AuditEvent], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
