package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"npmdeck/internal/model"
	"npmdeck/internal/repository"
	"npmdeck/internal/repository/mocks"
)

func TestAuditRecord(t *testing.T) {
	repo := new(mocks.MockAuditRepository)
	svc := NewAuditService(repo)

	ev := &model.AuditEvent{
		RequestID: "req-1",
		Actor:     "admin@example.com",
		Method:    "POST",
		Path:      "/api/nginx/proxy-hosts",
		Status:    201,
		LatencyMs: 42,
	}
	repo.On("Create", mock.Anything, ev).Return(nil)

	err := svc.Record(context.Background(), ev)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestAuditRecordIncomplete(t *testing.T) {
	repo := new(mocks.MockAuditRepository)
	svc := NewAuditService(repo)

	err := svc.Record(context.Background(), &model.AuditEvent{Method: "POST"})
	assert.ErrorIs(t, err, ErrEventIncomplete)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuditRecordRepoError(t *testing.T) {
	repo := new(mocks.MockAuditRepository)
	svc := NewAuditService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := svc.Record(context.Background(), &model.AuditEvent{Method: "DELETE", Path: "/api/nginx/streams/3"})
	assert.Error(t, err)
}

func TestAuditList(t *testing.T) {
	repo := new(mocks.MockAuditRepository)
	svc := NewAuditService(repo)

	items := []model.AuditEvent{{ID: "a"}, {ID: "b"}}
	repo.On("List", mock.Anything, repository.PageQuery{Limit: 10, Offset: 20}).
		Return(&repository.PageResult[model.AuditEvent]{Items: items, Total: 57}, nil)

	res, err := svc.List(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 57, res.Total)
	assert.Len(t, res.Items, 2)
}

func TestAuditListDefaults(t *testing.T) {
	repo := new(mocks.MockAuditRepository)
	svc := NewAuditService(repo)

	repo.On("List", mock.Anything, repository.PageQuery{Limit: 25, Offset: 0}).
		Return(&repository.PageResult[model.AuditEvent]{}, nil)

	_, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
