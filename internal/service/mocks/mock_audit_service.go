package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"npmdeck/internal/model"
	"npmdeck/internal/service"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, ev *model.AuditEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockAuditService) List(ctx context.Context, limit, offset int) (*service.AuditListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditListResult), args.Error(1)
}
