package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"paperscan/internal/domain"
	"paperscan/internal/port"
)

type committedPageRepo struct {
	db *sqlx.DB
}

// NewCommittedPageRepo creates a new PostgreSQL-backed CommittedPageRepository.
func NewCommittedPageRepo(db *sqlx.DB) port.CommittedPageRepository {
	return &committedPageRepo{db: db}
}

// Commit inserts the committed records and flags the source page in one
// transaction. The unique indexes on (assessment_id, paper_number,
// page_number), (assessment_id, paper_number, question_number) and
// image_hash decide occupancy; the collision detector's earlier read is only
// a fast path and is never trusted here.
func (r *committedPageRepo) Commit(ctx context.Context, rows []domain.CommittedPage) error {
	if len(rows) == 0 {
		return fmt.Errorf("committedPageRepo.Commit: no rows")
	}
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("committedPageRepo.Commit begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range rows {
		cp := &rows[i]
		cp.CreatedAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO committed_pages (
				id, assessment_id, bundle_id, page_image_id,
				paper_number, page_number, question_number, version,
				image_hash, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			cp.ID, cp.AssessmentID, cp.BundleID, cp.PageImageID,
			cp.PaperNumber, cp.PageNumber, cp.QuestionNumber, cp.Version,
			cp.ImageHash, cp.CreatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				if strings.Contains(err.Error(), "image_hash") {
					return domain.ErrDuplicateImage
				}
				return domain.ErrSlotOccupied
			}
			return fmt.Errorf("committedPageRepo.Commit insert: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE page_images SET committed = true, updated_at = $1 WHERE id = $2 AND committed = false",
		now, rows[0].PageImageID)
	if err != nil {
		return fmt.Errorf("committedPageRepo.Commit flag page: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrStaleState
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committedPageRepo.Commit commit: %w", err)
	}
	return nil
}

func (r *committedPageRepo) GetBySlot(ctx context.Context, assessmentID uuid.UUID, paper, page int) (*domain.CommittedPage, error) {
	var cp domain.CommittedPage
	err := r.db.GetContext(ctx, &cp, `
		SELECT * FROM committed_pages
		WHERE assessment_id = $1 AND paper_number = $2 AND page_number = $3`,
		assessmentID, paper, page)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("committedPageRepo.GetBySlot: %w", err)
	}
	return &cp, nil
}

func (r *committedPageRepo) ListByPaper(ctx context.Context, assessmentID uuid.UUID, paper int) ([]domain.CommittedPage, error) {
	var cps []domain.CommittedPage
	err := r.db.SelectContext(ctx, &cps, `
		SELECT * FROM committed_pages
		WHERE assessment_id = $1 AND paper_number = $2
		ORDER BY page_number NULLS LAST, question_number NULLS LAST`,
		assessmentID, paper)
	if err != nil {
		return nil, fmt.Errorf("committedPageRepo.ListByPaper: %w", err)
	}
	return cps, nil
}

func (r *committedPageRepo) CommittedPageNumbers(ctx context.Context, assessmentID uuid.UUID, paper int) (map[int]bool, error) {
	var pages []int
	err := r.db.SelectContext(ctx, &pages, `
		SELECT page_number FROM committed_pages
		WHERE assessment_id = $1 AND paper_number = $2 AND page_number IS NOT NULL`,
		assessmentID, paper)
	if err != nil {
		return nil, fmt.Errorf("committedPageRepo.CommittedPageNumbers: %w", err)
	}
	set := make(map[int]bool, len(pages))
	for _, p := range pages {
		set[p] = true
	}
	return set, nil
}
