package service

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

type harness struct {
	repo     *fakeRecordStore
	sheets   *fakeSheets
	docs     *fakeDocs
	files    *fakeFiles
	renderer *fakeRenderer
	exporter *fakeExporter
	logger   *mockLogger
	svc      VoucherService
}

func newHarness() *harness {
	h := &harness{
		repo:     newFakeRecordStore(),
		sheets:   newFakeSheets(),
		docs:     newFakeDocs(),
		files:    newFakeFiles(),
		renderer: &fakeRenderer{},
		exporter: &fakeExporter{},
		logger:   &mockLogger{},
	}
	h.svc = NewVoucherService(VoucherDeps{
		Repo:        h.repo,
		Workspaces:  NewWorkspaceService(h.repo, h.sheets, h.docs, h.logger),
		Numbering:   NewNumberingService(h.repo, h.logger),
		Renderer:    h.renderer,
		Files:       h.files,
		Sheets:      h.sheets,
		Documents:   h.docs,
		Exporter:    h.exporter,
		Previewer:   fakePreviewer{},
		SpellAmount: func(amount string) string { return "Rupees " + amount + " Only" },
		Logger:      h.logger,
	})
	return h
}

func sampleFields(category, amount string) entity.VoucherFields {
	return entity.VoucherFields{
		Category:        category,
		Date:            "2024-05-01",
		Payee:           "Ravi Kumar",
		AccountHead:     "Travel",
		Towards:         "Cab fare",
		TransactionType: entity.TransactionUPI,
		Amount:          amount,
		CheckedBy:       "Priya",
		ApprovedBy:      "Arun",
	}
}

func TestVoucherService_SubmitProvisionsWorkspace(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "1500"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Voucher.Number)
	assert.True(t, res.WorkspaceCreated)
	assert.NotEmpty(t, res.Voucher.ID)
	assert.Equal(t, "https://drive.example/"+res.Voucher.DocumentID, res.DocumentLink)
	assert.Equal(t, entity.SpreadsheetURL(res.Voucher.SpreadsheetID), res.WorkspaceURL)
	assert.Equal(t, "Rupees 1500 Only", res.Voucher.AmountInWords)

	rows := h.sheets.rows(res.Voucher.SpreadsheetID)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.SheetHeader, rows[0])
	assert.Equal(t, res.Voucher.SheetRow(), rows[1])

	assert.Equal(t, 1, h.docs.fileCount())
	assert.Equal(t, 1, h.repo.count())
	assert.Zero(t, h.files.remaining(), "scratch file must be removed")
}

func TestVoucherService_SubmitReusesWorkspace(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "100"))
	require.NoError(t, err)
	second, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "200"))
	require.NoError(t, err)

	assert.Equal(t, 2, second.Voucher.Number)
	assert.False(t, second.WorkspaceCreated)
	assert.Equal(t, first.Voucher.SpreadsheetID, second.Voucher.SpreadsheetID)
	assert.Equal(t, first.Voucher.FolderID, second.Voucher.FolderID)
	assert.Equal(t, 1, h.sheets.callCount("create"))

	next, err := h.svc.NextNumber(ctx, alice, entity.CategoryContentstack)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestVoucherService_NumbersAreScopedPerOwnerAndCategory(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "10"))
		require.NoError(t, err)
	}

	res, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategorySurfboard, "10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Voucher.Number)

	res, err = h.svc.Submit(ctx, bob, sampleFields(entity.CategoryContentstack, "10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Voucher.Number)
	assert.Equal(t, 3, h.sheets.callCount("create"))
}

func TestVoucherService_SubmitRejectsBeforeExternalCalls(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		fields  entity.VoucherFields
		wantErr error
	}{
		{
			name:    "unknown category",
			owner:   alice,
			fields:  sampleFields("Acme", "10"),
			wantErr: ErrInvalidCategory,
		},
		{
			name:    "empty category",
			owner:   alice,
			fields:  sampleFields("", "10"),
			wantErr: ErrInvalidCategory,
		},
		{
			name:    "oversized amount",
			owner:   alice,
			fields:  sampleFields(entity.CategorySurfboard, strings.Repeat("9", 65)),
			wantErr: ErrInvalidVoucher,
		},
		{
			name:    "missing owner",
			owner:   "",
			fields:  sampleFields(entity.CategorySurfboard, "10"),
			wantErr: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()

			_, err := h.svc.Submit(context.Background(), tt.owner, tt.fields)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			assert.Empty(t, h.sheets.calls)
			assert.Empty(t, h.docs.folders)
			assert.Zero(t, h.repo.count())
		})
	}
}

func TestVoucherService_SubmitAcceptsFreeTextAmounts(t *testing.T) {
	tests := []struct {
		amount    string
		wantValue float64
	}{
		{"ten", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-Infinity", 0},
		{"Rs 500/-", 500},
		{"INR 1,200", 1200},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			h := newHarness()

			res, err := h.svc.Submit(context.Background(), alice, sampleFields(entity.CategorySurfboard, tt.amount))
			require.NoError(t, err)

			assert.Equal(t, tt.amount, res.Voucher.Amount)
			assert.False(t, math.IsNaN(res.Voucher.AmountValue()))
			assert.InDelta(t, tt.wantValue, res.Voucher.AmountValue(), 0.0001)
			assert.Equal(t, 1, h.repo.count())
			assert.Equal(t, tt.amount, h.sheets.rows(res.Voucher.SpreadsheetID)[1][7])
		})
	}
}

func TestVoucherService_ConcurrentSubmitsGetDistinctNumbers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	const n = 12
	numbers := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryRawEngineering, "50"))
			if assert.NoError(t, err) {
				numbers[i] = res.Voucher.Number
			}
		}(i)
	}
	wg.Wait()

	sort.Ints(numbers)
	for i, got := range numbers {
		assert.Equal(t, i+1, got)
	}
	assert.Equal(t, 1, h.sheets.callCount("create"), "workspace provisioned once")
	assert.Equal(t, n, h.repo.count())
}

func TestVoucherService_SubmitFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantErr   error
		wantDocs  int
		wantRows  int
		wantStore int
	}{
		{
			name:     "render failure",
			setup:    func(h *harness) { h.renderer.err = errBoom },
			wantErr:  ErrRenderIOFailure,
			wantRows: 1,
		},
		{
			name:     "upload failure",
			setup:    func(h *harness) { h.docs.uploadErr = errBoom },
			wantErr:  ErrUpstreamWriteFailure,
			wantRows: 1,
		},
		{
			name:     "append failure keeps uploaded document",
			setup:    func(h *harness) { h.sheets.appendErr = errBoom },
			wantErr:  ErrUpstreamWriteFailure,
			wantDocs: 1,
			wantRows: 1,
		},
		{
			name:     "record failure keeps row and document",
			setup:    func(h *harness) { h.repo.createErr = errBoom },
			wantErr:  ErrUpstreamWriteFailure,
			wantDocs: 1,
			wantRows: 2,
		},
		{
			name:    "allocation failure",
			setup:   func(h *harness) { h.repo.allocateErr = errBoom },
			wantErr: ErrUpstreamWriteFailure,
			// header only
			wantRows: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			_, err := h.svc.Submit(context.Background(), alice, sampleFields(entity.CategoryContentstack, "75"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			assert.Equal(t, tt.wantDocs, h.docs.fileCount())
			assert.Len(t, h.sheets.rows("sheet-1"), tt.wantRows)
			assert.Equal(t, tt.wantStore, h.repo.count())
			assert.Zero(t, h.files.remaining(), "scratch file must be removed")
		})
	}
}

func TestVoucherService_ProvisioningFailure(t *testing.T) {
	h := newHarness()
	h.docs.folderErr = errBoom

	_, err := h.svc.Submit(context.Background(), alice, sampleFields(entity.CategoryContentstack, "10"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvisioningFailed))
	assert.Equal(t, 1, h.sheets.callCount("create"))
	assert.Zero(t, h.docs.fileCount())
	assert.Zero(t, h.repo.count())
	assert.Contains(t, h.logger.errors, "Failed to create folder, spreadsheet left orphaned")
}

func TestVoucherService_Update(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "100"))
	require.NoError(t, err)
	second, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "200"))
	require.NoError(t, err)
	oldDoc := second.Voucher.DocumentID

	fields := sampleFields("", "250")
	fields.Payee = "Meera"
	res, err := h.svc.Update(ctx, alice, second.Voucher.ID, fields)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Voucher.Number)
	assert.Equal(t, entity.CategoryContentstack, res.Voucher.Category)
	assert.Equal(t, "Meera", res.Voucher.Payee)
	assert.NotEqual(t, oldDoc, res.Voucher.DocumentID)
	assert.Contains(t, h.docs.deleted, oldDoc)
	assert.Equal(t, 2, h.docs.fileCount())

	rows := h.sheets.rows(res.Voucher.SpreadsheetID)
	require.Len(t, rows, 3, "edit overwrites in place")
	assert.Equal(t, res.Voucher.SheetRow(), rows[2])

	stored, err := h.svc.Get(ctx, alice, second.Voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, "250", stored.Amount)
	assert.Equal(t, res.Voucher.DocumentLink, stored.DocumentLink)
	assert.Zero(t, h.files.remaining())
}

func TestVoucherService_UpdateErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness, v *entity.Voucher) (owner, id string, fields entity.VoucherFields)
		wantErr error
	}{
		{
			name: "unknown id",
			setup: func(h *harness, v *entity.Voucher) (string, string, entity.VoucherFields) {
				return alice, "999", sampleFields("", "10")
			},
			wantErr: ErrVoucherNotFound,
		},
		{
			name: "another owner's voucher",
			setup: func(h *harness, v *entity.Voucher) (string, string, entity.VoucherFields) {
				return bob, v.ID, sampleFields("", "10")
			},
			wantErr: ErrVoucherNotFound,
		},
		{
			name: "category change",
			setup: func(h *harness, v *entity.Voucher) (string, string, entity.VoucherFields) {
				return alice, v.ID, sampleFields(entity.CategorySurfboard, "10")
			},
			wantErr: ErrInvalidVoucher,
		},
		{
			name: "row missing",
			setup: func(h *harness, v *entity.Voucher) (string, string, entity.VoucherFields) {
				h.sheets.grids[v.SpreadsheetID] = h.sheets.grids[v.SpreadsheetID][:1]
				return alice, v.ID, sampleFields("", "10")
			},
			wantErr: ErrRowNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			ctx := context.Background()

			res, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "100"))
			require.NoError(t, err)

			owner, id, fields := tt.setup(h, res.Voucher)
			_, err = h.svc.Update(ctx, owner, id, fields)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			assert.Empty(t, h.docs.deleted, "document untouched on failed edit")
			stored, err := h.svc.Get(ctx, alice, res.Voucher.ID)
			require.NoError(t, err)
			assert.Equal(t, "100", stored.Amount)
		})
	}
}

func TestVoucherService_Delete(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategorySurfboard, "100"))
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, alice, sampleFields(entity.CategorySurfboard, "200"))
	require.NoError(t, err)

	res, err := h.svc.Delete(ctx, alice, 1, "")
	require.NoError(t, err)
	assert.True(t, res.RowCleared)
	assert.Equal(t, entity.CategorySurfboard, res.Category)

	assert.Contains(t, h.docs.deleted, first.Voucher.DocumentID)
	rows := h.sheets.rows(first.Voucher.SpreadsheetID)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1], "row cleared, not removed")
	assert.Equal(t, "2", rows[2][0])

	_, err = h.svc.Get(ctx, alice, first.Voucher.ID)
	assert.True(t, errors.Is(err, ErrVoucherNotFound))

	next, err := h.svc.NextNumber(ctx, alice, entity.CategorySurfboard)
	require.NoError(t, err)
	assert.Equal(t, 3, next, "numbers are not reused")
}

func TestVoucherService_DeleteWithoutRow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	v, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategorySurfboard, "100"))
	require.NoError(t, err)
	h.sheets.grids[v.Voucher.SpreadsheetID] = h.sheets.grids[v.Voucher.SpreadsheetID][:1]

	res, err := h.svc.Delete(ctx, alice, 1, entity.CategorySurfboard)
	require.NoError(t, err)
	assert.False(t, res.RowCleared)
	assert.Zero(t, h.sheets.callCount("clear"))
	assert.Zero(t, h.repo.count())
}

func TestVoucherService_DeleteErrors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategorySurfboard, "100"))
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "100"))
	require.NoError(t, err)

	_, err = h.svc.Delete(ctx, alice, 1, "")
	assert.True(t, errors.Is(err, ErrInvalidVoucher), "ambiguous number needs a category")

	_, err = h.svc.Delete(ctx, alice, 7, entity.CategorySurfboard)
	assert.True(t, errors.Is(err, ErrVoucherNotFound))

	_, err = h.svc.Delete(ctx, bob, 1, entity.CategorySurfboard)
	assert.True(t, errors.Is(err, ErrVoucherNotFound))

	_, err = h.svc.Delete(ctx, alice, 1, "Acme")
	assert.True(t, errors.Is(err, ErrInvalidCategory))

	assert.Equal(t, 2, h.repo.count())
	assert.Empty(t, h.docs.deleted)
}

func TestVoucherService_List(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	for _, amount := range []string{"900", "1,200", "35"} {
		_, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, amount))
		require.NoError(t, err)
	}
	_, err := h.svc.Submit(ctx, bob, sampleFields(entity.CategoryContentstack, "1"))
	require.NoError(t, err)

	amounts := func(vs []*entity.Voucher) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Amount
		}
		return out
	}

	got, err := h.svc.List(ctx, alice, port.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"900", "1,200", "35"}, amounts(got))

	got, err = h.svc.List(ctx, alice, port.ListFilter{Sort: entity.SortByAmountDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"1,200", "900", "35"}, amounts(got))

	got, err = h.svc.List(ctx, bob, port.ListFilter{Category: entity.CategoryContentstack})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = h.svc.List(ctx, alice, port.ListFilter{Sort: "payee"})
	assert.True(t, errors.Is(err, ErrInvalidVoucher))

	_, err = h.svc.List(ctx, alice, port.ListFilter{Category: "Acme"})
	assert.True(t, errors.Is(err, ErrInvalidCategory))
}

func TestVoucherService_ExportAndPreview(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, alice, sampleFields(entity.CategoryContentstack, "10"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, h.svc.Export(ctx, alice, port.ListFilter{}, &out))
	assert.Equal(t, "xlsx", out.String())
	assert.Len(t, h.exporter.got, 1)

	out.Reset()
	require.NoError(t, h.svc.Preview(ctx, alice, res.Voucher.ID, &out))
	assert.Equal(t, "\x89PNG", out.String())

	err = h.svc.Preview(ctx, bob, res.Voucher.ID, &out)
	assert.True(t, errors.Is(err, ErrVoucherNotFound))
}

func TestFindRow(t *testing.T) {
	rows := [][]string{
		{"Voucher No."},
		{"1"},
		{},
		{" 3 "},
		{"12"},
	}

	tests := []struct {
		number int
		want   int
	}{
		{1, 2},
		{3, 4},
		{12, 5},
		{2, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FindRow(rows, tt.number), "number %d", tt.number)
	}
	assert.Zero(t, FindRow(nil, 1))
}
