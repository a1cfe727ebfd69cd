package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"paperscan/internal/domain"
	"paperscan/internal/port"
	"paperscan/internal/tpv"
)

// CreateAssessmentInput is the DTO for creating an assessment.
type CreateAssessmentInput struct {
	Name          string
	NumPapers     int
	PagesPerPaper int
	NumVersions   int
	QuestionPages map[int][]int
	// MagicSeed, when non-zero, makes magic code generation deterministic.
	// Used by tests and reprints; production leaves it zero.
	MagicSeed int64
}

// AssessmentService defines the assessment management contract.
type AssessmentService interface {
	Create(ctx context.Context, input *CreateAssessmentInput) (*domain.Assessment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	List(ctx context.Context, offset, limit int) ([]domain.Assessment, int, error)
	// PaperPages lists everything committed for one paper, pages and
	// question assignments alike.
	PaperPages(ctx context.Context, assessmentID uuid.UUID, paper int) ([]domain.CommittedPage, error)
	// SlotOccupant reports which committed page holds a (paper, page) slot.
	SlotOccupant(ctx context.Context, assessmentID uuid.UUID, paper, page int) (*domain.CommittedPage, error)
}

type assessmentService struct {
	repo      port.AssessmentRepository
	committed port.CommittedPageRepository
}

// NewAssessmentService creates a new AssessmentService implementation.
func NewAssessmentService(repo port.AssessmentRepository, committed port.CommittedPageRepository) AssessmentService {
	return &assessmentService{repo: repo, committed: committed}
}

func (s *assessmentService) Create(ctx context.Context, input *CreateAssessmentInput) (*domain.Assessment, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("assessment name is required")
	}
	if input.PagesPerPaper < 1 {
		return nil, &domain.RangeError{Field: "pages_per_paper", Value: input.PagesPerPaper}
	}
	if input.NumVersions < 1 {
		return nil, &domain.RangeError{Field: "num_versions", Value: input.NumVersions}
	}

	qp := input.QuestionPages
	if qp == nil {
		qp = map[int][]int{}
	}
	for q, pages := range qp {
		for _, p := range pages {
			if p < 1 || p > input.PagesPerPaper {
				return nil, &domain.RangeError{Field: fmt.Sprintf("question %d page", q), Value: p}
			}
		}
	}
	qpJSON, err := json.Marshal(qp)
	if err != nil {
		return nil, fmt.Errorf("marshaling question pages: %w", err)
	}

	a := &domain.Assessment{
		ID:            uuid.New(),
		Name:          input.Name,
		MagicCode:     tpv.NewMagicCode(input.MagicSeed),
		NumPapers:     input.NumPapers,
		PagesPerPaper: input.PagesPerPaper,
		NumVersions:   input.NumVersions,
		QuestionPages: qpJSON,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *assessmentService) List(ctx context.Context, offset, limit int) ([]domain.Assessment, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *assessmentService) PaperPages(ctx context.Context, assessmentID uuid.UUID, paper int) ([]domain.CommittedPage, error) {
	if _, err := s.repo.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.committed.ListByPaper(ctx, assessmentID, paper)
}

func (s *assessmentService) SlotOccupant(ctx context.Context, assessmentID uuid.UUID, paper, page int) (*domain.CommittedPage, error) {
	if _, err := s.repo.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.committed.GetBySlot(ctx, assessmentID, paper, page)
}
