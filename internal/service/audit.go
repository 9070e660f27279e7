package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"npmdeck/internal/model"
	"npmdeck/internal/repository"
)

var (
	ErrEventIncomplete = errors.New("audit event needs method and path")
)

// AuditListResult is the service-level DTO for paginated audit events.
type AuditListResult struct {
	Items []model.AuditEvent `json:"data"`
	Total int                `json:"total"`
}

// AuditService records forwarded mutations and lists them for the /audit
// endpoint. Recording is called best-effort by the forwarder: a failure is
// logged there, never surfaced to the proxied request.
type AuditService interface {
	Record(ctx context.Context, ev *model.AuditEvent) error
	List(ctx context.Context, limit, offset int) (*AuditListResult, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService constructs an AuditService over the given repository.
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Record persists one event, assigning an ID and timestamp when absent.
func (s *auditService) Record(ctx context.Context, ev *model.AuditEvent) error {
	if ev.Method == "" || ev.Path == "" {
		return ErrEventIncomplete
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return s.repo.Create(ctx, ev)
}

// List returns audit events newest first.
func (s *auditService) List(ctx context.Context, limit, offset int) (*AuditListResult, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &AuditListResult{Items: res.Items, Total: res.Total}, nil
}
