package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"paperscan/internal/domain"
	"paperscan/internal/port"
)

// PushService commits a fully classified bundle into permanent storage.
type PushService interface {
	// Push commits every committable page of the bundle. It is idempotent:
	// pages committed by an earlier or concurrent push are reported, not
	// re-committed, and pushing an already committed bundle is a no-op.
	Push(ctx context.Context, bundleID uuid.UUID) (*domain.PushReport, error)
}

type pushService struct {
	bundles     port.BundleRepository
	pages       port.PageImageRepository
	assessments port.AssessmentRepository
	committed   port.CommittedPageRepository
	collisions  CollisionService
}

// NewPushService creates a new PushService implementation.
func NewPushService(
	bundles port.BundleRepository,
	pages port.PageImageRepository,
	assessments port.AssessmentRepository,
	committed port.CommittedPageRepository,
	collisions CollisionService,
) PushService {
	return &pushService{
		bundles:     bundles,
		pages:       pages,
		assessments: assessments,
		committed:   committed,
		collisions:  collisions,
	}
}

func (s *pushService) Push(ctx context.Context, bundleID uuid.UUID) (*domain.PushReport, error) {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	assessment, err := s.assessments.GetByID(ctx, bundle.AssessmentID)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByBundle(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	report := &domain.PushReport{BundleID: bundleID}

	if bundle.Committed {
		for _, p := range pages {
			if p.Committed {
				report.AlreadyCommitted = append(report.AlreadyCommitted, p.ID)
			}
		}
		report.BundleCommitted = true
		return report, nil
	}

	if err := s.checkReady(pages); err != nil {
		return nil, err
	}

	// The collision read is a fast path only; the storage constraints make
	// the final call during each commit below.
	collisions, err := s.collisions.Detect(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if len(collisions.Internal) > 0 {
		return nil, &domain.InternalCollisionError{Groups: collisions.Internal}
	}
	if len(collisions.External) > 0 {
		return nil, &domain.ExternalCollisionError{Conflicts: collisions.External}
	}

	// Newly committed known page numbers by paper, for the readiness report.
	newPages := map[int]map[int]bool{}
	allDone := true

	for i := range pages {
		page := &pages[i]
		if page.Committed {
			report.AlreadyCommitted = append(report.AlreadyCommitted, page.ID)
			continue
		}
		if page.State == domain.ClassDiscard {
			continue
		}

		rows, err := s.commitRows(assessment, bundle, page)
		if err != nil {
			return nil, err
		}

		switch err := s.committed.Commit(ctx, rows); {
		case err == nil:
			report.Committed = append(report.Committed, page.ID)
			if page.State == domain.ClassKnown {
				if newPages[*page.Paper] == nil {
					newPages[*page.Paper] = map[int]bool{}
				}
				newPages[*page.Paper][*page.Page] = true
			}
		case errors.Is(err, domain.ErrSlotOccupied), errors.Is(err, domain.ErrDuplicateImage):
			// Another bundle won the slot between the collision read and
			// this commit. Flag the page and keep going; the rest of the
			// bundle is unaffected.
			reason := "target slot was claimed by a concurrent push"
			if errors.Is(err, domain.ErrDuplicateImage) {
				reason = "identical page image already committed"
			}
			s.flagCollision(ctx, page, reason)
			report.Blocked = append(report.Blocked, domain.BlockedPage{
				PageImageID: page.ID,
				BundleOrder: page.BundleOrder,
				Reason:      reason,
			})
			allDone = false
		case errors.Is(err, domain.ErrStaleState):
			// A concurrent push of this same bundle committed the page
			// first. Idempotence: report, do not fail.
			report.AlreadyCommitted = append(report.AlreadyCommitted, page.ID)
		default:
			return nil, fmt.Errorf("committing page %s: %w", page.ID, err)
		}
	}

	if allDone {
		if err := s.bundles.SetCommitted(ctx, bundleID); err != nil {
			return nil, err
		}
		report.BundleCommitted = true
	}

	ready, err := s.questionsReady(ctx, assessment, newPages)
	if err != nil {
		return nil, err
	}
	report.QuestionsReady = ready

	log.Printf("pushService.Push: bundle %s committed=%d already=%d blocked=%d",
		bundleID, len(report.Committed), len(report.AlreadyCommitted), len(report.Blocked))
	return report, nil
}

// checkReady enforces that every uncommitted page is committable: unknown
// and error pages block outright, and an extra page needs its paper and
// question assignment before it has a slot to go to.
func (s *pushService) checkReady(pages []domain.PageImage) error {
	var unresolved []uuid.UUID
	for _, p := range pages {
		if p.Committed {
			continue
		}
		if !p.State.Terminal() {
			unresolved = append(unresolved, p.ID)
			continue
		}
		if p.State == domain.ClassExtra {
			qs, err := p.ExtraQuestionList()
			if err != nil || p.ExtraPaper == nil || len(qs) == 0 {
				unresolved = append(unresolved, p.ID)
			}
		}
	}
	if len(unresolved) > 0 {
		return &domain.BundleNotReadyError{Unresolved: unresolved}
	}
	return nil
}

func (s *pushService) commitRows(assessment *domain.Assessment, bundle *domain.Bundle, page *domain.PageImage) ([]domain.CommittedPage, error) {
	base := domain.CommittedPage{
		AssessmentID: assessment.ID,
		BundleID:     bundle.ID,
		PageImageID:  page.ID,
		ImageHash:    page.ImageHash,
	}
	switch page.State {
	case domain.ClassKnown:
		row := base
		row.ID = uuid.New()
		row.PaperNumber = *page.Paper
		row.PageNumber = page.Page
		row.Version = page.Version
		return []domain.CommittedPage{row}, nil
	case domain.ClassExtra:
		qs, err := page.ExtraQuestionList()
		if err != nil {
			return nil, fmt.Errorf("decoding questions for page %s: %w", page.ID, err)
		}
		rows := make([]domain.CommittedPage, 0, len(qs))
		for _, q := range qs {
			q := q
			row := base
			row.ID = uuid.New()
			row.PaperNumber = *page.ExtraPaper
			row.QuestionNumber = &q
			rows = append(rows, row)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("page %s has no committable state %s", page.ID, page.State)
}

// flagCollision re-casts a page whose slot turned out to be taken at commit
// time. Best effort: a failure here only loses the annotation, not the
// blocked status in the report.
func (s *pushService) flagCollision(ctx context.Context, page *domain.PageImage, reason string) {
	next := *page
	next.State = domain.ClassError
	next.Paper, next.Page, next.Version = nil, nil, nil
	next.ExtraPaper, next.ExtraQuestions = nil, nil
	next.Reason = reason
	if err := s.pages.Cast(ctx, &next, page.State); err != nil {
		log.Printf("pushService.flagCollision: page %s: %v", page.ID, err)
	}
}

// questionsReady reports questions whose every expected page is now
// committed, restricted to papers this push touched.
func (s *pushService) questionsReady(ctx context.Context, assessment *domain.Assessment, newPages map[int]map[int]bool) ([]domain.QuestionReady, error) {
	if len(newPages) == 0 {
		return nil, nil
	}
	questionPages, err := assessment.QuestionPageMap()
	if err != nil {
		return nil, fmt.Errorf("decoding question layout: %w", err)
	}

	var ready []domain.QuestionReady
	for paper, fresh := range newPages {
		have, err := s.committed.CommittedPageNumbers(ctx, assessment.ID, paper)
		if err != nil {
			return nil, err
		}
		for q, span := range questionPages {
			touched := false
			complete := true
			for _, p := range span {
				if fresh[p] {
					touched = true
				}
				if !have[p] {
					complete = false
				}
			}
			if touched && complete {
				ready = append(ready, domain.QuestionReady{Paper: paper, Question: q})
			}
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Paper != ready[j].Paper {
			return ready[i].Paper < ready[j].Paper
		}
		return ready[i].Question < ready[j].Question
	})
	return ready, nil
}
