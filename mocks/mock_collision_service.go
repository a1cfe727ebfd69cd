package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/service"
)

// MockCollisionService is a mock implementation of service.CollisionService.
type MockCollisionService struct {
	mock.Mock
}

func (m *MockCollisionService) Detect(ctx context.Context, bundleID uuid.UUID) (*service.CollisionReport, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CollisionReport), args.Error(1)
}
