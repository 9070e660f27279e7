package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"npmdeck/internal/model"
)

type MockCertArchiveService struct {
	mock.Mock
}

func (m *MockCertArchiveService) Archive(ctx context.Context, certID int64, bundle *model.CertificateBundle) (model.ArchivedCertificate, error) {
	args := m.Called(ctx, certID, bundle)
	return args.Get(0).(model.ArchivedCertificate), args.Error(1)
}

func (m *MockCertArchiveService) List(ctx context.Context) ([]model.ArchivedCertificate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ArchivedCertificate), args.Error(1)
}

func (m *MockCertArchiveService) PresignDownload(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCertArchiveService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
