package port

import "context"

// PageBitmap is one rasterized page of an uploaded PDF.
type PageBitmap struct {
	// Order is the 0-based position within the bundle.
	Order int
	// Data is the encoded page image (PNG or JPEG as produced upstream).
	Data []byte
	// ContentType is the MIME type of Data.
	ContentType string
}

// Rasterizer turns an uploaded PDF into one bitmap per page. The pipeline
// only records hashes and classification slots; rendering quality is the
// rasterizer's concern.
type Rasterizer interface {
	// PageCount reports how many pages the PDF contains without
	// rasterizing, used for upfront validation.
	PageCount(ctx context.Context, pdf []byte) (int, error)
	Rasterize(ctx context.Context, pdf []byte) ([]PageBitmap, error)
}
