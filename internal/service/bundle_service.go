package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"paperscan/internal/config"
	"paperscan/internal/domain"
	"paperscan/internal/port"
)

// IngestInput is the DTO for uploading a scan bundle.
type IngestInput struct {
	AssessmentID uuid.UUID
	Name         string
	PDF          []byte
}

// BundleService defines the bundle ingestion and retrieval contract.
type BundleService interface {
	// Ingest stores the PDF, rasterizes it into page images and creates the
	// bundle with every page in the unknown state. Re-uploading the same
	// (name, pdf) pair returns the existing bundle unchanged.
	Ingest(ctx context.Context, input *IngestInput) (*domain.Bundle, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bundle, error)
	List(ctx context.Context, offset, limit int) ([]domain.Bundle, int, error)
	Pages(ctx context.Context, bundleID uuid.UUID) ([]domain.PageImage, error)
	// PageURL returns a presigned download URL for one page image.
	PageURL(ctx context.Context, pageID uuid.UUID) (string, error)
}

type bundleService struct {
	bundles     port.BundleRepository
	pages       port.PageImageRepository
	assessments port.AssessmentRepository
	storage     port.ObjectStorage
	rasterizer  port.Rasterizer
	s3cfg       *config.S3Config
}

// NewBundleService creates a new BundleService implementation.
func NewBundleService(
	bundles port.BundleRepository,
	pages port.PageImageRepository,
	assessments port.AssessmentRepository,
	storage port.ObjectStorage,
	rasterizer port.Rasterizer,
	s3cfg *config.S3Config,
) BundleService {
	return &bundleService{
		bundles:     bundles,
		pages:       pages,
		assessments: assessments,
		storage:     storage,
		rasterizer:  rasterizer,
		s3cfg:       s3cfg,
	}
}

func (s *bundleService) Ingest(ctx context.Context, input *IngestInput) (*domain.Bundle, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("bundle name is required")
	}
	if len(input.PDF) == 0 {
		return nil, domain.ErrEmptyBundle
	}
	if max := s.s3cfg.MaxFileSizeMB * 1024 * 1024; max > 0 && int64(len(input.PDF)) > max {
		return nil, fmt.Errorf("pdf exceeds maximum size of %dMB", s.s3cfg.MaxFileSizeMB)
	}

	if _, err := s.assessments.GetByID(ctx, input.AssessmentID); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(input.PDF)
	pdfHash := hex.EncodeToString(sum[:])

	// Same name: either the identical file (idempotent re-upload) or a
	// different file trying to reuse the name.
	if existing, err := s.bundles.GetByName(ctx, input.Name); err == nil {
		if existing.PDFHash == pdfHash {
			return existing, nil
		}
		return nil, domain.ErrBundleNameTaken
	} else if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrBundleNotFound) {
		return nil, err
	}

	// Same file under a different name is rejected outright rather than
	// silently aliased.
	if _, err := s.bundles.GetByHash(ctx, pdfHash); err == nil {
		return nil, domain.ErrBundleHashExists
	} else if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrBundleNotFound) {
		return nil, err
	}

	pageCount, err := s.rasterizer.PageCount(ctx, input.PDF)
	if err != nil {
		return nil, fmt.Errorf("counting pdf pages: %w", err)
	}
	if pageCount == 0 {
		return nil, domain.ErrEmptyBundle
	}

	bundleID := uuid.New()
	pdfKey := fmt.Sprintf("bundles/%s/source.pdf", bundleID)
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         pdfKey,
		Body:        bytes.NewReader(input.PDF),
		ContentType: "application/pdf",
	}); err != nil {
		return nil, fmt.Errorf("uploading pdf: %w", err)
	}
	// Everything uploaded before the bundle row exists is rolled back on
	// failure, so a half-ingested bundle leaves no orphaned objects.
	uploaded := []string{pdfKey}

	bitmaps, err := s.rasterizer.Rasterize(ctx, input.PDF)
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, fmt.Errorf("rasterizing pdf: %w", err)
	}

	pages := make([]domain.PageImage, 0, len(bitmaps))
	for _, bm := range bitmaps {
		imgSum := sha256.Sum256(bm.Data)
		key := fmt.Sprintf("bundles/%s/pages/%05d.png", bundleID, bm.Order)
		if _, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.s3cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(bm.Data),
			ContentType: bm.ContentType,
		}); err != nil {
			s.removeObjects(ctx, uploaded)
			return nil, fmt.Errorf("uploading page %d: %w", bm.Order, err)
		}
		uploaded = append(uploaded, key)
		pages = append(pages, domain.PageImage{
			ID:          uuid.New(),
			BundleID:    bundleID,
			BundleOrder: bm.Order,
			ImageHash:   hex.EncodeToString(imgSum[:]),
			S3Bucket:    s.s3cfg.Bucket,
			S3Key:       key,
			State:       domain.ClassUnknown,
		})
	}

	bundle := &domain.Bundle{
		ID:           bundleID,
		AssessmentID: input.AssessmentID,
		Name:         input.Name,
		PDFHash:      pdfHash,
		S3Bucket:     s.s3cfg.Bucket,
		S3Key:        pdfKey,
		PageCount:    len(pages),
		Status:       domain.BundleStatusPending,
		Committed:    false,
	}
	if err := s.bundles.Create(ctx, bundle); err != nil {
		s.removeObjects(ctx, uploaded)
		// A concurrent upload of the same file may have won the race; its
		// objects are the canonical copy.
		if errors.Is(err, domain.ErrBundleHashExists) || errors.Is(err, domain.ErrBundleNameTaken) {
			if existing, lookupErr := s.bundles.GetByName(ctx, input.Name); lookupErr == nil && existing.PDFHash == pdfHash {
				return existing, nil
			}
		}
		return nil, err
	}
	if err := s.pages.CreateBatch(ctx, pages); err != nil {
		return nil, fmt.Errorf("creating page images: %w", err)
	}

	log.Printf("bundleService.Ingest: bundle %s created with %d pages", bundleID, len(pages))
	return bundle, nil
}

// removeObjects deletes uploaded objects after a failed ingest. Best effort:
// a failure here leaves an unreferenced object, never a broken bundle.
func (s *bundleService) removeObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, s.s3cfg.Bucket, key); err != nil {
			log.Printf("bundleService.removeObjects: %s: %v", key, err)
		}
	}
}

func (s *bundleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bundle, error) {
	return s.bundles.GetByID(ctx, id)
}

func (s *bundleService) List(ctx context.Context, offset, limit int) ([]domain.Bundle, int, error) {
	return s.bundles.List(ctx, offset, limit)
}

func (s *bundleService) Pages(ctx context.Context, bundleID uuid.UUID) ([]domain.PageImage, error) {
	if _, err := s.bundles.GetByID(ctx, bundleID); err != nil {
		return nil, err
	}
	return s.pages.ListByBundle(ctx, bundleID)
}

func (s *bundleService) PageURL(ctx context.Context, pageID uuid.UUID) (string, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, page.S3Bucket, page.S3Key, s.s3cfg.PresignExpiry)
}
