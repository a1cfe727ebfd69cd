package port

import (
	"context"

	"paperscan/internal/domain"
)

// CornerReader wraps the external barcode decoder. For one page image it
// returns the raw code strings decoded near each corner; scanner noise can
// yield more than one string per corner, and occluded corners are simply
// absent.
type CornerReader interface {
	ReadCorners(ctx context.Context, image []byte) (map[domain.Corner][]string, error)
}
