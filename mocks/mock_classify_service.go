package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
	"paperscan/internal/service"
)

// MockClassifyService is a mock implementation of service.ClassifyService.
type MockClassifyService struct {
	mock.Mock
}

func (m *MockClassifyService) ClassifyBundle(ctx context.Context, bundleID uuid.UUID) error {
	args := m.Called(ctx, bundleID)
	return args.Error(0)
}

func (m *MockClassifyService) ProcessClaimed(ctx context.Context, bundle *domain.Bundle) error {
	args := m.Called(ctx, bundle)
	return args.Error(0)
}

func (m *MockClassifyService) Cast(ctx context.Context, input *service.CastInput) (*domain.PageImage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PageImage), args.Error(1)
}

func (m *MockClassifyService) AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) (*domain.PageImage, error) {
	args := m.Called(ctx, pageID, paper, questions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PageImage), args.Error(1)
}
