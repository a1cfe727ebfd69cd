package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"paperscan/internal/domain"
	"paperscan/internal/port"
)

type pageImageRepo struct {
	db *sqlx.DB
}

// NewPageImageRepo creates a new PostgreSQL-backed PageImageRepository.
func NewPageImageRepo(db *sqlx.DB) port.PageImageRepository {
	return &pageImageRepo{db: db}
}

func (r *pageImageRepo) CreateBatch(ctx context.Context, pages []domain.PageImage) error {
	if len(pages) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range pages {
		pages[i].CreatedAt = now
		pages[i].UpdatedAt = now
	}

	query := `INSERT INTO page_images (
		id, bundle_id, bundle_order, image_hash, s3_bucket, s3_key,
		rotation, state, paper, page, version, extra_paper, extra_questions,
		reason, corner_codes, committed, created_at, updated_at
	) VALUES (
		:id, :bundle_id, :bundle_order, :image_hash, :s3_bucket, :s3_key,
		:rotation, :state, :paper, :page, :version, :extra_paper, :extra_questions,
		:reason, :corner_codes, :committed, :created_at, :updated_at
	)`

	if _, err := r.db.NamedExecContext(ctx, query, pages); err != nil {
		return fmt.Errorf("pageImageRepo.CreateBatch: %w", err)
	}
	return nil
}

func (r *pageImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImage, error) {
	var p domain.PageImage
	err := r.db.GetContext(ctx, &p, "SELECT * FROM page_images WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("pageImageRepo.GetByID: %w", err)
	}
	return &p, nil
}

func (r *pageImageRepo) ListByBundle(ctx context.Context, bundleID uuid.UUID) ([]domain.PageImage, error) {
	var pages []domain.PageImage
	err := r.db.SelectContext(ctx, &pages,
		"SELECT * FROM page_images WHERE bundle_id = $1 ORDER BY bundle_order", bundleID)
	if err != nil {
		return nil, fmt.Errorf("pageImageRepo.ListByBundle: %w", err)
	}
	return pages, nil
}

// Cast replaces the page's classification in one conditional update. The
// WHERE clause pins the expected current state, so a concurrent cast makes
// this one a no-op reported as ErrStaleState. Payload columns of every state
// are written unconditionally: callers hand in a page whose payload fields
// already reflect the target state, so the old payload is wiped here too.
func (r *pageImageRepo) Cast(ctx context.Context, page *domain.PageImage, expected domain.Classification) error {
	page.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE page_images SET
			state = $1, paper = $2, page = $3, version = $4,
			extra_paper = $5, extra_questions = $6, reason = $7,
			rotation = $8, corner_codes = $9, updated_at = $10
		WHERE id = $11 AND state = $12 AND committed = false`,
		page.State, page.Paper, page.Page, page.Version,
		page.ExtraPaper, page.ExtraQuestions, page.Reason,
		page.Rotation, page.CornerCodes, page.UpdatedAt,
		page.ID, expected)
	if err != nil {
		return fmt.Errorf("pageImageRepo.Cast: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrStaleState
	}
	return nil
}

func (r *pageImageRepo) AssignExtra(ctx context.Context, pageID uuid.UUID, paper int, questions []int) error {
	qs, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("pageImageRepo.AssignExtra marshal: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE page_images SET extra_paper = $1, extra_questions = $2, updated_at = $3
		WHERE id = $4 AND state = $5 AND committed = false`,
		paper, qs, time.Now().UTC(), pageID, domain.ClassExtra)
	if err != nil {
		return fmt.Errorf("pageImageRepo.AssignExtra: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrStaleState
	}
	return nil
}

// collisionRow is the flat shape of the internal collision query.
type collisionRow struct {
	PageImageID uuid.UUID `db:"page_image_id"`
	BundleOrder int       `db:"bundle_order"`
	Paper       int       `db:"paper"`
	Page        int       `db:"page"`
	Version     int       `db:"version"`
}

func (r *pageImageRepo) InternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.CollisionGroup, error) {
	var rows []collisionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id AS page_image_id, bundle_order, paper, page, version
		FROM page_images
		WHERE bundle_id = $1 AND state = $2
		  AND (paper, page, version) IN (
			SELECT paper, page, version FROM page_images
			WHERE bundle_id = $1 AND state = $2
			GROUP BY paper, page, version
			HAVING COUNT(*) > 1
		  )
		ORDER BY paper, page, version, bundle_order`,
		bundleID, domain.ClassKnown)
	if err != nil {
		return nil, fmt.Errorf("pageImageRepo.InternalCollisions: %w", err)
	}
	return groupCollisionRows(rows), nil
}

// groupCollisionRows folds the flat query result into one group per
// (paper, page, version) key. Rows must be ordered by that key; every row
// lands in exactly one group, so two pages sharing an identity always end
// up in the same group together.
func groupCollisionRows(rows []collisionRow) []domain.CollisionGroup {
	var groups []domain.CollisionGroup
	for _, row := range rows {
		n := len(groups)
		if n == 0 || groups[n-1].Paper != row.Paper ||
			groups[n-1].Page != row.Page || groups[n-1].Version != row.Version {
			groups = append(groups, domain.CollisionGroup{
				Paper: row.Paper, Page: row.Page, Version: row.Version,
			})
			n++
		}
		groups[n-1].Members = append(groups[n-1].Members, domain.CollisionMember{
			PageImageID: row.PageImageID,
			BundleOrder: row.BundleOrder,
			Position:    row.BundleOrder + 1,
		})
	}
	return groups
}

// externalRow is the flat shape of the external collision query.
type externalRow struct {
	PageImageID     uuid.UUID `db:"page_image_id"`
	BundleOrder     int       `db:"bundle_order"`
	Paper           int       `db:"paper"`
	Page            int       `db:"page"`
	CommittedPageID uuid.UUID `db:"committed_page_id"`
	CommittedBundle uuid.UUID `db:"committed_bundle_id"`
}

func (r *pageImageRepo) ExternalCollisions(ctx context.Context, bundleID uuid.UUID) ([]domain.ExternalCollision, error) {
	var rows []externalRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT p.id AS page_image_id, p.bundle_order, p.paper, p.page,
		       c.id AS committed_page_id, c.bundle_id AS committed_bundle_id
		FROM page_images p
		JOIN bundles b ON b.id = p.bundle_id
		JOIN committed_pages c
		  ON c.assessment_id = b.assessment_id
		 AND c.paper_number = p.paper
		 AND c.page_number = p.page
		WHERE p.bundle_id = $1 AND p.state = $2 AND p.committed = false
		ORDER BY p.bundle_order`,
		bundleID, domain.ClassKnown)
	if err != nil {
		return nil, fmt.Errorf("pageImageRepo.ExternalCollisions: %w", err)
	}

	conflicts := make([]domain.ExternalCollision, 0, len(rows))
	for _, row := range rows {
		conflicts = append(conflicts, domain.ExternalCollision{
			PageImageID:     row.PageImageID,
			BundleOrder:     row.BundleOrder,
			Paper:           row.Paper,
			Page:            row.Page,
			CommittedPageID: row.CommittedPageID,
			CommittedBundle: row.CommittedBundle,
		})
	}
	return conflicts, nil
}
