package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"paperscan/internal/barcode"
	"paperscan/internal/config"
	"paperscan/internal/handler"
	"paperscan/internal/rasterize"
	"paperscan/internal/repository/postgres"
	"paperscan/internal/router"
	"paperscan/internal/service"
	s3storage "paperscan/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	assessmentRepo := postgres.NewAssessmentRepo(db)
	bundleRepo := postgres.NewBundleRepo(db)
	pageRepo := postgres.NewPageImageRepo(db)
	committedRepo := postgres.NewCommittedPageRepo(db)

	// Initialize adapters
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	decoder := barcode.NewClient(&cfg.Decoder)
	rasterizer := rasterize.New()

	// Initialize services
	assessmentSvc := service.NewAssessmentService(assessmentRepo, committedRepo)
	bundleSvc := service.NewBundleService(bundleRepo, pageRepo, assessmentRepo, s3Client, rasterizer, &cfg.S3)
	classifySvc := service.NewClassifyService(bundleRepo, pageRepo, assessmentRepo, s3Client, decoder, cfg.Queue.PageConcurrency)
	collisionSvc := service.NewCollisionService(bundleRepo, pageRepo)
	pushSvc := service.NewPushService(bundleRepo, pageRepo, assessmentRepo, committedRepo, collisionSvc)

	// Initialize handlers
	assessmentH := handler.NewAssessmentHandler(assessmentSvc)
	bundleH := handler.NewBundleHandler(bundleSvc, classifySvc, collisionSvc, pushSvc)
	pageH := handler.NewPageHandler(bundleSvc, classifySvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(assessmentH, bundleH, pageH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background classification of freshly uploaded bundles
	worker := service.NewScanQueueWorker(bundleRepo, classifySvc, service.ScanQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		BundleBatch:  cfg.Queue.BundleBatch,
		Concurrency:  cfg.Queue.PageConcurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone
	return nil
}
