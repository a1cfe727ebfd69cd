package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paperscan/internal/domain"
	"paperscan/internal/service"
	"paperscan/mocks"
)

func TestCollisionDetect_Clean(t *testing.T) {
	bundles := new(mocks.MockBundleRepo)
	pages := new(mocks.MockPageImageRepo)
	svc := service.NewCollisionService(bundles, pages)

	bundle := testBundle(uuid.New())
	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	pages.On("InternalCollisions", mock.Anything, bundle.ID).Return([]domain.CollisionGroup{}, nil)
	pages.On("ExternalCollisions", mock.Anything, bundle.ID).Return([]domain.ExternalCollision{}, nil)

	report, err := svc.Detect(context.Background(), bundle.ID)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestCollisionDetect_InternalShadowsExternal(t *testing.T) {
	bundles := new(mocks.MockBundleRepo)
	pages := new(mocks.MockPageImageRepo)
	svc := service.NewCollisionService(bundles, pages)

	bundle := testBundle(uuid.New())
	dupA := uuid.New()
	dupB := uuid.New()
	onlyExternal := uuid.New()

	bundles.On("GetByID", mock.Anything, bundle.ID).Return(bundle, nil)
	pages.On("InternalCollisions", mock.Anything, bundle.ID).Return([]domain.CollisionGroup{{
		Paper: 6, Page: 4, Version: 1,
		Members: []domain.CollisionMember{
			{PageImageID: dupA, BundleOrder: 0, Position: 1},
			{PageImageID: dupB, BundleOrder: 3, Position: 4},
		},
	}}, nil)
	// The repo reports every occupied slot; pages already in an internal
	// group must be filtered so each page carries exactly one diagnosis.
	pages.On("ExternalCollisions", mock.Anything, bundle.ID).Return([]domain.ExternalCollision{
		{PageImageID: dupA, BundleOrder: 0, Paper: 6, Page: 4},
		{PageImageID: onlyExternal, BundleOrder: 5, Paper: 7, Page: 1},
	}, nil)

	report, err := svc.Detect(context.Background(), bundle.ID)
	require.NoError(t, err)
	assert.Len(t, report.Internal, 1)
	require.Len(t, report.External, 1)
	assert.Equal(t, onlyExternal, report.External[0].PageImageID)
	assert.False(t, report.Clean())
}

func TestCollisionDetect_BundleNotFound(t *testing.T) {
	bundles := new(mocks.MockBundleRepo)
	pages := new(mocks.MockPageImageRepo)
	svc := service.NewCollisionService(bundles, pages)

	id := uuid.New()
	bundles.On("GetByID", mock.Anything, id).Return(nil, domain.ErrBundleNotFound)

	_, err := svc.Detect(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrBundleNotFound)
}
