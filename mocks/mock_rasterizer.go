package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"paperscan/internal/port"
)

// MockRasterizer is a mock implementation of port.Rasterizer.
type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) PageCount(ctx context.Context, pdf []byte) (int, error) {
	args := m.Called(ctx, pdf)
	return args.Int(0), args.Error(1)
}

func (m *MockRasterizer) Rasterize(ctx context.Context, pdf []byte) ([]port.PageBitmap, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.PageBitmap), args.Error(1)
}
