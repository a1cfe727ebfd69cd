package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
)

// MockAssessmentRepo is a mock implementation of port.AssessmentRepository.
type MockAssessmentRepo struct {
	mock.Mock
}

func (m *MockAssessmentRepo) Create(ctx context.Context, a *domain.Assessment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssessmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assessment), args.Error(1)
}

func (m *MockAssessmentRepo) GetByName(ctx context.Context, name string) (*domain.Assessment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assessment), args.Error(1)
}

func (m *MockAssessmentRepo) List(ctx context.Context, offset, limit int) ([]domain.Assessment, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Assessment), args.Int(1), args.Error(2)
}
