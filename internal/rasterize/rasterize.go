// Package rasterize implements the port.Rasterizer boundary: pdfcpu for PDF
// inspection and pdftoppm (poppler-utils) for page rendering. pdftoppm
// renders the page as displayed; extracting raw embedded images would miss
// pages composed of more than one image object.
package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"paperscan/internal/port"
)

// Rasterizer renders uploaded PDFs to one PNG per page.
type Rasterizer struct {
	// DPI is the render resolution. QR decoding wants 200+.
	DPI int
}

// New creates a Rasterizer with the default 300 DPI.
func New() *Rasterizer {
	return &Rasterizer{DPI: 300}
}

// PageCount reports the number of pages without rendering anything.
func (r *Rasterizer) PageCount(_ context.Context, pdf []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("rasterize: page count: %w", err)
	}
	return count, nil
}

// Rasterize renders every page of the PDF to a PNG bitmap. Pages render
// concurrently, bounded by the CPU count.
func (r *Rasterizer) Rasterize(ctx context.Context, pdf []byte) ([]port.PageBitmap, error) {
	pageCount, err := r.PageCount(ctx, pdf)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "paperscan-raster-*")
	if err != nil {
		return nil, fmt.Errorf("rasterize: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "bundle.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("rasterize: writing temp pdf: %w", err)
	}

	type result struct {
		page int
		data []byte
		err  error
	}

	sem := make(chan struct{}, runtime.NumCPU())
	results := make(chan result, pageCount)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(page int) {
			defer func() { <-sem }() // release
			data, err := r.renderPage(ctx, pdfPath, tmpDir, page)
			results <- result{page: page, data: data, err: err}
		}(page)
	}

	bitmaps := make([]port.PageBitmap, pageCount)
	for i := 0; i < pageCount; i++ {
		res := <-results
		if res.err != nil {
			return nil, fmt.Errorf("rasterize: page %d: %w", res.page, res.err)
		}
		bitmaps[res.page-1] = port.PageBitmap{
			Order:       res.page - 1,
			Data:        res.data,
			ContentType: "image/png",
		}
	}
	return bitmaps, nil
}

func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, tmpDir string, page int) ([]byte, error) {
	prefix := filepath.Join(tmpDir, fmt.Sprintf("page-%04d", page))
	pageStr := fmt.Sprintf("%d", page)

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", r.DPI),
		"-singlefile",
		pdfPath,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("reading rendered page: %w", err)
	}
	return data, nil
}
