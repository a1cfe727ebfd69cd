package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
)

// MockCommittedPageRepo is a mock implementation of port.CommittedPageRepository.
type MockCommittedPageRepo struct {
	mock.Mock
}

func (m *MockCommittedPageRepo) Commit(ctx context.Context, rows []domain.CommittedPage) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockCommittedPageRepo) GetBySlot(ctx context.Context, assessmentID uuid.UUID, paper, page int) (*domain.CommittedPage, error) {
	args := m.Called(ctx, assessmentID, paper, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommittedPage), args.Error(1)
}

func (m *MockCommittedPageRepo) ListByPaper(ctx context.Context, assessmentID uuid.UUID, paper int) ([]domain.CommittedPage, error) {
	args := m.Called(ctx, assessmentID, paper)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommittedPage), args.Error(1)
}

func (m *MockCommittedPageRepo) CommittedPageNumbers(ctx context.Context, assessmentID uuid.UUID, paper int) (map[int]bool, error) {
	args := m.Called(ctx, assessmentID, paper)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]bool), args.Error(1)
}
