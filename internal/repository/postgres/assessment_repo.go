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

type assessmentRepo struct {
	db *sqlx.DB
}

// NewAssessmentRepo creates a new PostgreSQL-backed AssessmentRepository.
func NewAssessmentRepo(db *sqlx.DB) port.AssessmentRepository {
	return &assessmentRepo{db: db}
}

func (r *assessmentRepo) Create(ctx context.Context, a *domain.Assessment) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `INSERT INTO assessments (
		id, name, magic_code, num_papers, pages_per_paper, num_versions,
		question_pages, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.MagicCode, a.NumPapers, a.PagesPerPaper, a.NumVersions,
		a.QuestionPages, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrDuplicateAssessment
		}
		return fmt.Errorf("assessmentRepo.Create: %w", err)
	}
	return nil
}

func (r *assessmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	var a domain.Assessment
	err := r.db.GetContext(ctx, &a, "SELECT * FROM assessments WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("assessmentRepo.GetByID: %w", err)
	}
	return &a, nil
}

func (r *assessmentRepo) GetByName(ctx context.Context, name string) (*domain.Assessment, error) {
	var a domain.Assessment
	err := r.db.GetContext(ctx, &a, "SELECT * FROM assessments WHERE name = $1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("assessmentRepo.GetByName: %w", err)
	}
	return &a, nil
}

func (r *assessmentRepo) List(ctx context.Context, offset, limit int) ([]domain.Assessment, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assessments"); err != nil {
		return nil, 0, fmt.Errorf("assessmentRepo.List count: %w", err)
	}

	var as []domain.Assessment
	err := r.db.SelectContext(ctx, &as,
		"SELECT * FROM assessments ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("assessmentRepo.List: %w", err)
	}
	return as, total, nil
}
