package voucher

import (
	"fmt"
	"image/png"
	"io"

	"github.com/gen2brain/go-fitz"

	"github.com/garyjia/voucher-sync/internal/application/port"
)

const defaultPreviewDPI = 100

// Previewer rasterizes rendered vouchers with MuPDF
type Previewer struct {
	dpi float64
}

// NewPreviewer creates a previewer rendering at dpi; non-positive uses the default
func NewPreviewer(dpi float64) *Previewer {
	if dpi <= 0 {
		dpi = defaultPreviewDPI
	}
	return &Previewer{dpi: dpi}
}

// PreviewPNG writes the first page of pdf as a PNG image
func (p *Previewer) PreviewPNG(pdf []byte, w io.Writer) error {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return ErrEmptyDocument
	}

	img, err := doc.ImageDPI(0, p.dpi)
	if err != nil {
		return fmt.Errorf("failed to rasterize page: %w", err)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

// PageCount returns the number of pages in pdf
func PageCount(pdf []byte) (int, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Verify interface compliance
var _ port.Previewer = (*Previewer)(nil)
