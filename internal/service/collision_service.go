package service

import (
	"context"

	"github.com/google/uuid"

	"paperscan/internal/domain"
	"paperscan/internal/port"
)

// CollisionReport pairs both collision checks for one bundle. Internal
// groups take precedence: a page flagged internally never also appears in
// the external list, so fixing duplicates inside the bundle comes first.
type CollisionReport struct {
	BundleID uuid.UUID                  `json:"bundle_id"`
	Internal []domain.CollisionGroup    `json:"internal"`
	External []domain.ExternalCollision `json:"external"`
}

// Clean reports whether the bundle has no collisions of either kind.
func (r *CollisionReport) Clean() bool {
	return len(r.Internal) == 0 && len(r.External) == 0
}

// CollisionService detects duplicate page identities before a push.
type CollisionService interface {
	Detect(ctx context.Context, bundleID uuid.UUID) (*CollisionReport, error)
}

type collisionService struct {
	bundles port.BundleRepository
	pages   port.PageImageRepository
}

// NewCollisionService creates a new CollisionService implementation.
func NewCollisionService(bundles port.BundleRepository, pages port.PageImageRepository) CollisionService {
	return &collisionService{bundles: bundles, pages: pages}
}

func (s *collisionService) Detect(ctx context.Context, bundleID uuid.UUID) (*CollisionReport, error) {
	if _, err := s.bundles.GetByID(ctx, bundleID); err != nil {
		return nil, err
	}

	internal, err := s.pages.InternalCollisions(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	external, err := s.pages.ExternalCollisions(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if len(internal) > 0 && len(external) > 0 {
		flagged := map[uuid.UUID]bool{}
		for _, g := range internal {
			for _, m := range g.Members {
				flagged[m.PageImageID] = true
			}
		}
		kept := external[:0]
		for _, c := range external {
			if !flagged[c.PageImageID] {
				kept = append(kept, c)
			}
		}
		external = kept
	}

	return &CollisionReport{BundleID: bundleID, Internal: internal, External: external}, nil
}
