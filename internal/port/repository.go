package port

import (
	"context"

	"github.com/google/uuid"

	"paperscan/internal/domain"
)

// AssessmentRepository defines the contract for assessment persistence.
type AssessmentRepository interface {
	Create(ctx context.Context, a *domain.Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	GetByName(ctx context.Context, name string) (*domain.Assessment, error)
	List(ctx context.Context, offset, limit int) ([]domain.Assessment, int, error)
}

// BundleRepository defines the contract for bundle persistence.
type BundleRepository interface {
	Create(ctx context.Context, b *domain.Bundle) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bundle, error)
	GetByName(ctx context.Context, name string) (*domain.Bundle, error)
	GetByHash(ctx context.Context, pdfHash string) (*domain.Bundle, error)
	List(ctx context.Context, offset, limit int) ([]domain.Bundle, int, error)
	// ClaimPending moves up to limit bundles from pending to classifying
	// and returns them. The status change is the claim; two workers never
	// receive the same bundle.
	ClaimPending(ctx context.Context, limit int) ([]domain.Bundle, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to domain.BundleStatus) error
	// SetCommitted flips the monotonic committed flag.
	SetCommitted(ctx context.Context, id uuid.UUID) error
}

// PageImageRepository defines the contract for page image persistence.
type PageImageRepository interface {
	CreateBatch(ctx context.Context, pages []domain.PageImage) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImage, error)
	ListByBundle(ctx context.Context, bundleID uuid.UUID) ([]domain.PageImage, error)
	// Cast atomically replaces the page's classification. The update is
	// conditional on the stored state still being expected; when it is not,
	// domain.ErrStaleState is returned and nothing changes. The old state's
	// payload columns are wiped and the new state's payload written in the
	// same statement.
	Cast(ctx context.Context, page *domain.PageImage, expected domain.Classification) error
	// AssignExtra attaches a paper number and question list to an extra page.
	AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) error
	// InternalCollisions groups the bundle's known pages by their
	// paper/page/version key and returns every group with more than one
	// member.
	InternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.CollisionGroup, error)
	// ExternalCollisions reports known pages of the bundle whose
	// (paper, page) slot is already occupied in committed storage. Pages
	// already flagged by the internal check are filtered by the caller.
	ExternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.ExternalCollision, error)
}

// CommittedPageRepository defines the contract for the permanent store.
type CommittedPageRepository interface {
	// Commit creates the committed records and marks the source page
	// committed in one transaction. All rows must belong to one page image;
	// a known page commits one row, an extra page one row per assigned
	// question. The storage uniqueness constraints on (paper_number,
	// page_number), (paper_number, question_number), and the image hash are
	// the final arbiter: a violation yields domain.ErrSlotOccupied or
	// domain.ErrDuplicateImage and no row is kept.
	Commit(ctx context.Context, rows []domain.CommittedPage) error
	GetBySlot(ctx context.Context, assessmentID uuid.UUID, paper, page int) (*domain.CommittedPage, error)
	ListByPaper(ctx context.Context, assessmentID uuid.UUID, paper int) ([]domain.CommittedPage, error)
	// CommittedPageNumbers returns the set of committed page numbers for
	// one paper, for the question-fully-scanned report.
	CommittedPageNumbers(ctx context.Context, assessmentID uuid.UUID, paper int) (map[int]bool, error)
}
