package voucher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

func TestExcelExporter_Export(t *testing.T) {
	exporter := NewExcelExporter(zap.NewNop())

	first := sampleVoucher()
	first.Amount = "1,500"
	second := sampleVoucher()
	second.Number = 43
	second.Amount = "n/a"

	var buf bytes.Buffer
	require.NoError(t, exporter.Export([]*entity.Voucher{first, second}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.SheetHeader, rows[0])
	assert.Equal(t, "42", rows[1][0])
	assert.Equal(t, entity.CategoryContentstack, rows[1][2])
	assert.Equal(t, "n/a", rows[2][7], "unparseable amounts stay text")

	amount, err := f.GetCellValue(exportSheet, "H2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1500", amount)
}

func TestExcelExporter_EmptyListing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(zap.NewNop()).Export(nil, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
