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

type bundleRepo struct {
	db *sqlx.DB
}

// NewBundleRepo creates a new PostgreSQL-backed BundleRepository.
func NewBundleRepo(db *sqlx.DB) port.BundleRepository {
	return &bundleRepo{db: db}
}

func (r *bundleRepo) Create(ctx context.Context, b *domain.Bundle) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	query := `INSERT INTO bundles (
		id, assessment_id, name, pdf_hash, s3_bucket, s3_key,
		page_count, status, committed, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.AssessmentID, b.Name, b.PDFHash, b.S3Bucket, b.S3Key,
		b.PageCount, b.Status, b.Committed, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			if strings.Contains(err.Error(), "pdf_hash") {
				return domain.ErrBundleHashExists
			}
			return domain.ErrBundleNameTaken
		}
		return fmt.Errorf("bundleRepo.Create: %w", err)
	}
	return nil
}

func (r *bundleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bundle, error) {
	var b domain.Bundle
	err := r.db.GetContext(ctx, &b, "SELECT * FROM bundles WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("bundleRepo.GetByID: %w", err)
	}
	return &b, nil
}

func (r *bundleRepo) GetByName(ctx context.Context, name string) (*domain.Bundle, error) {
	var b domain.Bundle
	err := r.db.GetContext(ctx, &b, "SELECT * FROM bundles WHERE name = $1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("bundleRepo.GetByName: %w", err)
	}
	return &b, nil
}

func (r *bundleRepo) GetByHash(ctx context.Context, pdfHash string) (*domain.Bundle, error) {
	var b domain.Bundle
	err := r.db.GetContext(ctx, &b, "SELECT * FROM bundles WHERE pdf_hash = $1", pdfHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, fmt.Errorf("bundleRepo.GetByHash: %w", err)
	}
	return &b, nil
}

func (r *bundleRepo) List(ctx context.Context, offset, limit int) ([]domain.Bundle, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bundles"); err != nil {
		return nil, 0, fmt.Errorf("bundleRepo.List count: %w", err)
	}

	var bs []domain.Bundle
	err := r.db.SelectContext(ctx, &bs,
		"SELECT * FROM bundles ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("bundleRepo.List: %w", err)
	}
	return bs, total, nil
}

// ClaimPending flips up to limit pending bundles to classifying and returns
// them. FOR UPDATE SKIP LOCKED keeps concurrent workers from claiming the
// same bundle.
func (r *bundleRepo) ClaimPending(ctx context.Context, limit int) ([]domain.Bundle, error) {
	var bs []domain.Bundle
	err := r.db.SelectContext(ctx, &bs, `
		UPDATE bundles SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM bundles
			WHERE status = $3 AND committed = false
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		domain.BundleStatusClassifying, time.Now().UTC(), domain.BundleStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("bundleRepo.ClaimPending: %w", err)
	}
	return bs, nil
}

func (r *bundleRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.BundleStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE bundles SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("bundleRepo.SetStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrStaleState
	}
	return nil
}

func (r *bundleRepo) SetCommitted(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE bundles SET committed = true, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("bundleRepo.SetCommitted: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrBundleNotFound
	}
	return nil
}
