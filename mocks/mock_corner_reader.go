package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
)

// MockCornerReader is a mock implementation of port.CornerReader.
type MockCornerReader struct {
	mock.Mock
}

func (m *MockCornerReader) ReadCorners(ctx context.Context, image []byte) (map[domain.Corner][]string, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Corner][]string), args.Error(1)
}
