package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"paperscan/internal/domain"
	"paperscan/internal/port"
	"paperscan/internal/resolve"
)

// CastInput is the DTO for a manual classification change.
type CastInput struct {
	PageID   uuid.UUID
	Expected domain.Classification
	Target   domain.Classification
	Paper    int
	Page     int
	Version  int
	Reason   string
}

// ClassifyService drives automatic and manual page classification.
type ClassifyService interface {
	// ClassifyBundle claims the bundle and runs the automatic classifier
	// over every unknown page. Pages that a human already classified are
	// left alone.
	ClassifyBundle(ctx context.Context, bundleID uuid.UUID) error
	// ProcessClaimed classifies a bundle the queue worker already moved to
	// classifying.
	ProcessClaimed(ctx context.Context, bundle *domain.Bundle) error
	// Cast applies a manual classification change. Expected is the state
	// the caller last observed; a mismatch returns domain.ErrStaleState.
	Cast(ctx context.Context, input *CastInput) (*domain.PageImage, error)
	// AssignExtra attaches a paper number and question list to an extra
	// page so a push can commit it.
	AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) (*domain.PageImage, error)
}

type classifyService struct {
	bundles     port.BundleRepository
	pages       port.PageImageRepository
	assessments port.AssessmentRepository
	storage     port.ObjectStorage
	reader      port.CornerReader
	concurrency int
}

// NewClassifyService creates a new ClassifyService implementation.
// concurrency bounds how many pages are decoded in parallel per bundle.
func NewClassifyService(
	bundles port.BundleRepository,
	pages port.PageImageRepository,
	assessments port.AssessmentRepository,
	storage port.ObjectStorage,
	reader port.CornerReader,
	concurrency int,
) ClassifyService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &classifyService{
		bundles:     bundles,
		pages:       pages,
		assessments: assessments,
		storage:     storage,
		reader:      reader,
		concurrency: concurrency,
	}
}

func (s *classifyService) ClassifyBundle(ctx context.Context, bundleID uuid.UUID) error {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return err
	}
	if bundle.Committed {
		return domain.ErrBundleAlreadyCommitted
	}

	// The status change is the claim; it keeps the queue worker and a
	// manual trigger from classifying the same bundle twice. A classified
	// bundle may be re-run to pick up pages still unknown.
	err = s.bundles.SetStatus(ctx, bundle.ID, domain.BundleStatusPending, domain.BundleStatusClassifying)
	if errors.Is(err, domain.ErrStaleState) {
		err = s.bundles.SetStatus(ctx, bundle.ID, domain.BundleStatusClassified, domain.BundleStatusClassifying)
	}
	if err != nil {
		return err
	}
	return s.ProcessClaimed(ctx, bundle)
}

func (s *classifyService) ProcessClaimed(ctx context.Context, bundle *domain.Bundle) error {
	assessment, err := s.assessments.GetByID(ctx, bundle.AssessmentID)
	if err != nil {
		return err
	}
	pages, err := s.pages.ListByBundle(ctx, bundle.ID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range pages {
		page := pages[i]
		if page.State != domain.ClassUnknown {
			continue
		}
		g.Go(func() error {
			if err := s.classifyPage(gctx, assessment, &page); err != nil {
				// Decoder outages leave the page unknown; the next
				// classification run retries it.
				log.Printf("classifyService.ProcessClaimed: page %s left unknown: %v", page.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.bundles.SetStatus(ctx, bundle.ID, domain.BundleStatusClassifying, domain.BundleStatusClassified); err != nil {
		return err
	}
	log.Printf("classifyService.ProcessClaimed: bundle %s classified", bundle.ID)
	return nil
}

func (s *classifyService) classifyPage(ctx context.Context, assessment *domain.Assessment, page *domain.PageImage) error {
	image, err := s.storage.Download(ctx, page.S3Bucket, page.S3Key)
	if err != nil {
		return fmt.Errorf("downloading page image: %w", err)
	}
	readings, err := s.reader.ReadCorners(ctx, image)
	if err != nil {
		return fmt.Errorf("reading corners: %w", err)
	}

	rawCodes, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("marshaling corner codes: %w", err)
	}

	res := resolve.Resolve(resolve.CornerReadings(readings))

	next := *page
	next.CornerCodes = rawCodes
	switch res.Kind {
	case resolve.KindNoCodes:
		// Blank backs and photos carry no codes. The page stays unknown
		// and waits for a human decision.
		return nil
	case resolve.KindKnown:
		if res.Magic != assessment.MagicCode {
			next.State = domain.ClassError
			next.Reason = fmt.Sprintf("magic code %s belongs to a different assessment", res.Magic)
		} else if res.Page > assessment.PagesPerPaper || res.Version > assessment.NumVersions {
			next.State = domain.ClassError
			next.Reason = fmt.Sprintf("page %d version %d outside assessment layout", res.Page, res.Version)
		} else {
			next.State = domain.ClassKnown
			next.Paper = &res.Paper
			next.Page = &res.Page
			next.Version = &res.Version
			next.Rotation = res.Orientation.RotationAngle()
		}
	case resolve.KindExtra:
		next.State = domain.ClassExtra
		next.Rotation = res.Orientation.RotationAngle()
	case resolve.KindInconsistent:
		next.State = domain.ClassError
		next.Reason = (&domain.InconsistentError{Reason: res.Reason}).Error()
	}

	err = s.pages.Cast(ctx, &next, domain.ClassUnknown)
	if errors.Is(err, domain.ErrStaleState) {
		// A human classified the page while we were decoding. Their
		// decision wins.
		log.Printf("classifyService.classifyPage: page %s already classified, skipping", page.ID)
		return nil
	}
	return err
}

func (s *classifyService) Cast(ctx context.Context, input *CastInput) (*domain.PageImage, error) {
	page, err := s.pages.GetByID(ctx, input.PageID)
	if err != nil {
		return nil, err
	}
	if page.Committed {
		return nil, domain.ErrBundleAlreadyCommitted
	}
	bundle, err := s.bundles.GetByID(ctx, page.BundleID)
	if err != nil {
		return nil, err
	}
	if bundle.Committed {
		return nil, domain.ErrBundleAlreadyCommitted
	}
	if err := domain.ValidateCast(input.Expected, input.Target); err != nil {
		return nil, err
	}

	next := *page
	next.State = input.Target
	next.Paper, next.Page, next.Version = nil, nil, nil
	next.ExtraPaper, next.ExtraQuestions = nil, nil
	next.Reason = ""

	switch input.Target {
	case domain.ClassKnown:
		assessment, err := s.assessments.GetByID(ctx, bundle.AssessmentID)
		if err != nil {
			return nil, err
		}
		if input.Paper < 0 {
			return nil, &domain.RangeError{Field: "paper", Value: input.Paper}
		}
		if input.Page < 1 || input.Page > assessment.PagesPerPaper {
			return nil, &domain.RangeError{Field: "page", Value: input.Page}
		}
		if input.Version < 1 || input.Version > assessment.NumVersions {
			return nil, &domain.RangeError{Field: "version", Value: input.Version}
		}
		next.Paper = &input.Paper
		next.Page = &input.Page
		next.Version = &input.Version
	case domain.ClassDiscard, domain.ClassError:
		if input.Reason == "" {
			return nil, fmt.Errorf("a reason is required to mark a page %s", input.Target)
		}
		next.Reason = input.Reason
	}

	if err := s.pages.Cast(ctx, &next, input.Expected); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *classifyService) AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) (*domain.PageImage, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.State != domain.ClassExtra {
		return nil, &domain.InvalidTransitionError{From: page.State, To: domain.ClassExtra}
	}
	if page.Committed {
		return nil, domain.ErrExtraNotAssignable
	}
	bundle, err := s.bundles.GetByID(ctx, page.BundleID)
	if err != nil {
		return nil, err
	}
	if bundle.Committed {
		return nil, domain.ErrExtraNotAssignable
	}
	assessment, err := s.assessments.GetByID(ctx, bundle.AssessmentID)
	if err != nil {
		return nil, err
	}
	if paper < 0 {
		return nil, &domain.RangeError{Field: "paper", Value: paper}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("at least one question is required")
	}
	questionPages, err := assessment.QuestionPageMap()
	if err != nil {
		return nil, fmt.Errorf("decoding question layout: %w", err)
	}
	for _, q := range questions {
		if _, ok := questionPages[q]; !ok {
			return nil, &domain.RangeError{Field: "question", Value: q}
		}
	}

	if err := s.pages.AssignExtra(ctx, pageID, paper, questions); err != nil {
		return nil, err
	}
	return s.pages.GetByID(ctx, pageID)
}
