package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
)

// MockPageImageRepo is a mock implementation of port.PageImageRepository.
type MockPageImageRepo struct {
	mock.Mock
}

func (m *MockPageImageRepo) CreateBatch(ctx context.Context, pages []domain.PageImage) error {
	args := m.Called(ctx, pages)
	return args.Error(0)
}

func (m *MockPageImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PageImage), args.Error(1)
}

func (m *MockPageImageRepo) ListByBundle(ctx context.Context, bundleID uuid.UUID) ([]domain.PageImage, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageImage), args.Error(1)
}

func (m *MockPageImageRepo) Cast(ctx context.Context, page *domain.PageImage, expected domain.Classification) error {
	args := m.Called(ctx, page, expected)
	return args.Error(0)
}

func (m *MockPageImageRepo) AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) error {
	args := m.Called(ctx, pageID, paper, questions)
	return args.Error(0)
}

func (m *MockPageImageRepo) InternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.CollisionGroup, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CollisionGroup), args.Error(1)
}

func (m *MockPageImageRepo) ExternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.ExternalCollision, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExternalCollision), args.Error(1)
}
