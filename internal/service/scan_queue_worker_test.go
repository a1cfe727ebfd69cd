package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperscan/internal/domain"
	"paperscan/internal/service"
	"paperscan/mocks"
)

func TestScanQueueWorker_PollsAndDispatches(t *testing.T) {
	bundles := new(mocks.MockBundleRepo)
	classify := new(mocks.MockClassifyService)

	bundle := *testBundle(uuid.New())
	bundle.Status = domain.BundleStatusClassifying

	// First poll returns one bundle, subsequent polls return empty
	bundles.On("ClaimPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.Bundle{bundle}, nil).Once()
	bundles.On("ClaimPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.Bundle{}, nil).Maybe()
	classify.On("ProcessClaimed", mock.Anything, mock.AnythingOfType("*domain.Bundle")).
		Return(nil).Maybe()

	worker := service.NewScanQueueWorker(bundles, classify, service.ScanQueueConfig{
		PollInterval: 50 * time.Millisecond,
		BundleBatch:  2,
		Concurrency:  2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// Wait for at least one poll cycle
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	bundles.AssertCalled(t, "ClaimPending", mock.Anything, mock.AnythingOfType("int"))
	classify.AssertCalled(t, "ProcessClaimed", mock.Anything, mock.AnythingOfType("*domain.Bundle"))
}

func TestScanQueueWorker_RequeuesFailedBundle(t *testing.T) {
	bundles := new(mocks.MockBundleRepo)
	classify := new(mocks.MockClassifyService)

	bundle := *testBundle(uuid.New())
	bundle.Status = domain.BundleStatusClassifying

	bundles.On("ClaimPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.Bundle{bundle}, nil).Once()
	bundles.On("ClaimPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.Bundle{}, nil).Maybe()
	classify.On("ProcessClaimed", mock.Anything, mock.AnythingOfType("*domain.Bundle")).
		Return(domain.ErrNotFound).Once()
	bundles.On("SetStatus", mock.Anything, bundle.ID, domain.BundleStatusClassifying, domain.BundleStatusPending).
		Return(nil).Once()

	worker := service.NewScanQueueWorker(bundles, classify, service.ScanQueueConfig{
		PollInterval: 50 * time.Millisecond,
		BundleBatch:  1,
		Concurrency:  1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	bundles.AssertCalled(t, "SetStatus", mock.Anything, bundle.ID,
		domain.BundleStatusClassifying, domain.BundleStatusPending)
}
