package voucher

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// Page geometry in millimetres
const (
	pageMargin     = 20.0
	contentWidth   = 210.0 - 2*pageMargin
	logoSize       = 22.0
	rowHeight      = 10.0
	labelWidth     = 45.0
	signatureGap   = 6.0
	underlinePad   = 6.0
	minUnderline   = 40.0
	signatureLineY = 235.0
)

// PDFRenderer lays out a voucher on a single A4 page
type PDFRenderer struct {
	logos  LogoSet
	logger *zap.Logger
}

// NewPDFRenderer creates a renderer that draws logos from logos
func NewPDFRenderer(logos LogoSet, logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{
		logos:  logos,
		logger: logger,
	}
}

// Render writes the voucher document to w
func (r *PDFRenderer) Render(ctx context.Context, v *entity.Voucher, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(fmt.Sprintf("%s Voucher %d", v.Category, v.Number), true)
	pdf.AddPage()

	tr := translator(pdf)

	r.drawHeader(pdf, tr, v)
	drawRows(pdf, tr, v)
	drawSignatures(pdf, tr, v)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out voucher: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write voucher pdf: %w", err)
	}
	return nil
}

func (r *PDFRenderer) drawHeader(pdf *fpdf.Fpdf, tr func(string) string, v *entity.Voucher) {
	top := pdf.GetY()

	path, known, err := r.logos.Path(v.Category)
	switch {
	case err != nil:
		r.logger.Warn("Logo unavailable, rendering without it",
			zap.String("category", v.Category),
			zap.Error(err))
	case known:
		pdf.ImageOptions(path, pageMargin, top, logoSize, 0, false,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(pageMargin, top)
	pdf.CellFormat(contentWidth, 8, "PAYMENT VOUCHER", "", 2, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(contentWidth, 7, tr(v.Category), "", 2, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(pageMargin, top+18)
	pdf.CellFormat(contentWidth, 6, "No. : "+strconv.Itoa(v.Number), "", 2, "R", false, 0, "")
	pdf.CellFormat(contentWidth, 6, "Date : "+tr(v.Date), "", 2, "R", false, 0, "")

	y := top + logoSize + 10
	pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
	pdf.SetXY(pageMargin, y+6)
}

// voucherRows lists the labelled body rows in display order
func voucherRows(v *entity.Voucher) [][2]string {
	return [][2]string{
		{"Paid to", v.Payee},
		{"Account Head", v.AccountHead},
		{"Towards", v.Towards},
		{"Transaction Type", v.TransactionType},
		{"Amount", v.Amount},
		{"Amount in Words", v.AmountInWords},
	}
}

func drawRows(pdf *fpdf.Fpdf, tr func(string) string, v *entity.Voucher) {
	for _, row := range voucherRows(v) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, rowHeight, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(contentWidth-labelWidth, rowHeight, tr(row[1]), "B", 2, "L", false, 0, "")
		pdf.SetX(pageMargin)
		pdf.Ln(2)
	}
}

// signatureBlocks lists the three signers left to right
func signatureBlocks(v *entity.Voucher) [][2]string {
	return [][2]string{
		{"Checked By", v.CheckedBy},
		{"Approved By", v.ApprovedBy},
		{"Receiver's Signature", v.ReceiverSignature},
	}
}

func drawSignatures(pdf *fpdf.Fpdf, tr func(string) string, v *entity.Voucher) {
	columnWidth := (contentWidth - 2*signatureGap) / 3

	for i, block := range signatureBlocks(v) {
		x := pageMargin + float64(i)*(columnWidth+signatureGap)
		name := tr(block[1])

		pdf.SetFont("Helvetica", "", 10)
		width := underlineWidth(pdf.GetStringWidth(name))
		if width > columnWidth {
			width = columnWidth
		}

		pdf.SetXY(x, signatureLineY-7)
		pdf.CellFormat(width, 6, name, "", 0, "C", false, 0, "")
		pdf.Line(x, signatureLineY, x+width, signatureLineY)

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetXY(x, signatureLineY+1)
		pdf.CellFormat(width, 5, block[0], "", 0, "C", false, 0, "")
	}
}

// underlineWidth sizes a signature line to fit its text
func underlineWidth(textWidth float64) float64 {
	if w := textWidth + underlinePad; w > minUnderline {
		return w
	}
	return minUnderline
}

// translator maps UTF-8 text to the core font encoding. The rupee sign has
// no cp1252 glyph.
func translator(pdf *fpdf.Fpdf) func(string) string {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		return tr(strings.ReplaceAll(s, "₹", "Rs."))
	}
}

// Verify interface compliance
var _ port.Renderer = (*PDFRenderer)(nil)
