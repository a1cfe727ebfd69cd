package service

import (
	"context"
	"log"
	"sync"
	"time"

	"paperscan/internal/domain"
	"paperscan/internal/port"
)

// ScanQueueConfig holds settings for the scan queue worker.
type ScanQueueConfig struct {
	PollInterval time.Duration
	BundleBatch  int
	Concurrency  int
}

// ScanQueueWorker polls for pending bundles and dispatches them for
// classification. Claiming is the status flip to classifying, so multiple
// worker replicas never process the same bundle.
type ScanQueueWorker struct {
	bundles  port.BundleRepository
	classify ClassifyService
	cfg      ScanQueueConfig
	wg       sync.WaitGroup
}

// NewScanQueueWorker creates a new ScanQueueWorker.
func NewScanQueueWorker(bundles port.BundleRepository, classify ClassifyService, cfg ScanQueueConfig) *ScanQueueWorker {
	return &ScanQueueWorker{
		bundles:  bundles,
		classify: classify,
		cfg:      cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight classifications have finished.
func (w *ScanQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.BundleBatch)

	log.Printf("scanQueueWorker: started (poll=%s, batch=%d)", w.cfg.PollInterval, w.cfg.BundleBatch)

	for {
		select {
		case <-ctx.Done():
			log.Printf("scanQueueWorker: shutting down, waiting for in-flight bundles...")
			w.wg.Wait()
			log.Printf("scanQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.BundleBatch - len(sem)
			if available <= 0 {
				continue
			}

			bundles, err := w.bundles.ClaimPending(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("scanQueueWorker: ClaimPending error: %v", err)
				continue
			}

			for i := range bundles {
				bundle := bundles[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight bundles finish during shutdown.
					classifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
					defer cancel()

					log.Printf("scanQueueWorker: dispatching bundle %s (%d pages)", bundle.ID, bundle.PageCount)
					if err := w.classify.ProcessClaimed(classifyCtx, &bundle); err != nil {
						log.Printf("scanQueueWorker: bundle %s: %v", bundle.ID, err)
						// Requeue so the next poll retries it.
						if err := w.bundles.SetStatus(classifyCtx, bundle.ID, domain.BundleStatusClassifying, domain.BundleStatusPending); err != nil {
							log.Printf("scanQueueWorker: requeue bundle %s: %v", bundle.ID, err)
						}
					}
				}()
			}
		}
	}
}
