package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
)

// MockBundleRepo is a mock implementation of port.BundleRepository.
type MockBundleRepo struct {
	mock.Mock
}

func (m *MockBundleRepo) Create(ctx context.Context, b *domain.Bundle) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBundleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bundle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) GetByName(ctx context.Context, name string) (*domain.Bundle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) GetByHash(ctx context.Context, pdfHash string) (*domain.Bundle, error) {
	args := m.Called(ctx, pdfHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) List(ctx context.Context, offset, limit int) ([]domain.Bundle, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Bundle), args.Int(1), args.Error(2)
}

func (m *MockBundleRepo) ClaimPending(ctx context.Context, limit int) ([]domain.Bundle, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.BundleStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBundleRepo) SetCommitted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
