package voucher

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

const exportSheet = "Vouchers"

// ExcelExporter writes voucher listings as .xlsx workbooks laid out like
// the workspace spreadsheet
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Export writes a header row followed by one row per voucher
func (e *ExcelExporter) Export(vouchers []*entity.Voucher, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := e.setRow(f, 1, toCells(entity.SheetHeader)); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(entity.SheetHeader), 1)
		if err := f.SetCellStyle(exportSheet, "A1", lastCell, headerStyle); err != nil {
			e.logger.Warn("Failed to style header row", zap.Error(err))
		}
	}

	for i, v := range vouchers {
		cells := toCells(v.SheetRow())
		// Number and amount are written as numbers so the sheet can sum them.
		cells[0] = v.Number
		if amount, ok := amountCell(v); ok {
			cells[7] = amount
		}
		if err := e.setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Voucher export written", zap.Int("rows", len(vouchers)))
	return nil
}

func (e *ExcelExporter) setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func amountCell(v *entity.Voucher) (float64, bool) {
	if v.Amount == "" {
		return 0, false
	}
	value := v.AmountValue()
	return value, value != 0 || v.Amount == "0"
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// Verify interface compliance
var _ port.Exporter = (*ExcelExporter)(nil)
