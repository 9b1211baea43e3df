package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
	"github.com/garyjia/voucher-sync/pkg/utils"
)

// SubmitResult is returned by Submit and Update
type SubmitResult struct {
	Voucher      *entity.Voucher `json:"voucher"`
	DocumentLink string          `json:"documentLink"`
	WorkspaceURL string          `json:"workspaceUrl"`
	// WorkspaceCreated is true when this submission provisioned the workspace
	WorkspaceCreated bool `json:"workspaceCreated"`
}

// DeleteResult confirms a deletion
type DeleteResult struct {
	Number     int    `json:"number"`
	Category   string `json:"category"`
	RowCleared bool   `json:"rowCleared"`
}

// VoucherService synchronizes vouchers across the document store, the
// workspace spreadsheet and the record store. Writes are sequential and
// best-effort: a failing step aborts the rest and earlier effects remain.
type VoucherService interface {
	NextNumber(ctx context.Context, owner, category string) (int, error)
	List(ctx context.Context, owner string, filter port.ListFilter) ([]*entity.Voucher, error)
	Get(ctx context.Context, owner, id string) (*entity.Voucher, error)
	Submit(ctx context.Context, owner string, fields entity.VoucherFields) (*SubmitResult, error)
	Update(ctx context.Context, owner, id string, fields entity.VoucherFields) (*SubmitResult, error)
	Delete(ctx context.Context, owner string, number int, category string) (*DeleteResult, error)
	Export(ctx context.Context, owner string, filter port.ListFilter, w io.Writer) error
	Preview(ctx context.Context, owner, id string, w io.Writer) error
}

// VoucherDeps holds the collaborators of the voucher service
type VoucherDeps struct {
	Repo       port.VoucherRepository
	Workspaces WorkspaceService
	Numbering  NumberingService
	Renderer   port.Renderer
	Files      port.FileStorage
	Sheets     port.SpreadsheetStore
	Documents  port.DocumentStore
	Exporter   port.Exporter
	Previewer  port.Previewer
	// SpellAmount fills an empty amount-in-words; optional
	SpellAmount func(amount string) string
	Logger      Logger
}

type voucherServiceImpl struct {
	VoucherDeps
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(deps VoucherDeps) VoucherService {
	return &voucherServiceImpl{VoucherDeps: deps}
}

// NextNumber returns the number the caller's next voucher in category would get
func (s *voucherServiceImpl) NextNumber(ctx context.Context, owner, category string) (int, error) {
	return s.Numbering.Peek(ctx, owner, category)
}

// List returns the owner's vouchers from the record store
func (s *voucherServiceImpl) List(ctx context.Context, owner string, filter port.ListFilter) ([]*entity.Voucher, error) {
	if filter.Category != "" && !entity.IsValidCategory(filter.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, filter.Category)
	}
	if !entity.IsValidSort(filter.Sort) {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidVoucher, filter.Sort)
	}
	if filter.Sort == "" {
		filter.Sort = entity.SortByNumber
	}

	vouchers, err := s.Repo.List(ctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return vouchers, nil
}

// Get returns one voucher owned by owner
func (s *voucherServiceImpl) Get(ctx context.Context, owner, id string) (*entity.Voucher, error) {
	v, err := s.Repo.GetByID(ctx, id, owner)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: id %s", ErrVoucherNotFound, id)
	}
	return v, nil
}

// Submit provisions the workspace if needed, numbers and renders the
// voucher, then writes document, spreadsheet row and record in that order.
func (s *voucherServiceImpl) Submit(ctx context.Context, owner string, fields entity.VoucherFields) (*SubmitResult, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if err := entity.ValidateOwner(owner); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrUnauthenticated, err)
	}

	ws, created, err := s.Workspaces.EnsureWorkspace(ctx, owner, fields.Category)
	if err != nil {
		return nil, err
	}

	number, err := s.Numbering.Allocate(ctx, owner, fields.Category)
	if err != nil {
		return nil, err
	}

	v := &entity.Voucher{
		Owner:         owner,
		Category:      fields.Category,
		Number:        number,
		SpreadsheetID: ws.SpreadsheetID,
		FolderID:      ws.FolderID,
	}
	v.Apply(fields)
	s.fillAmountInWords(v)

	path, cleanup, err := s.renderToScratch(ctx, v)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := s.upload(ctx, v, path)
	if err != nil {
		return nil, err
	}
	v.DocumentID = doc.ID
	v.DocumentLink = doc.Link

	if err := s.Sheets.Append(ctx, v.SpreadsheetID, AppendRange(v.Category), [][]string{v.SheetRow()}); err != nil {
		s.Logger.Error("Failed to append spreadsheet row", "owner", owner, "number", number, "document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("%w: append spreadsheet row: %v", ErrUpstreamWriteFailure, err)
	}

	if err := s.Repo.Create(ctx, v); err != nil {
		s.Logger.Error("Failed to persist voucher record", "owner", owner, "number", number, "document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("%w: create voucher record: %v", ErrUpstreamWriteFailure, err)
	}

	s.Logger.Info("Voucher submitted",
		"owner", owner,
		"category", v.Category,
		"number", v.Number,
		"voucher_id", v.ID,
		"workspace_created", created,
	)

	return &SubmitResult{
		Voucher:          v,
		DocumentLink:     v.DocumentLink,
		WorkspaceURL:     ws.URL(),
		WorkspaceCreated: created,
	}, nil
}

// Update replaces the fields of an existing voucher, regenerates its
// document and rewrites its spreadsheet row. Category and number never change.
func (s *voucherServiceImpl) Update(ctx context.Context, owner, id string, fields entity.VoucherFields) (*SubmitResult, error) {
	v, err := s.Repo.GetByID(ctx, id, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: load voucher: %v", ErrUpstreamWriteFailure, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: id %s", ErrVoucherNotFound, id)
	}

	if fields.Category == "" {
		fields.Category = v.Category
	}
	if fields.Category != v.Category {
		return nil, fmt.Errorf("%w: category cannot change from %q to %q", ErrInvalidVoucher, v.Category, fields.Category)
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	// An edit must land on an existing row; find it before touching the document.
	row, err := s.locateRow(ctx, v)
	if err != nil {
		return nil, err
	}
	if row == 0 {
		s.Logger.Error("Spreadsheet row not found for edit", "owner", owner, "number", v.Number, "spreadsheet_id", v.SpreadsheetID)
		return nil, fmt.Errorf("%w: voucher %d in %s", ErrRowNotFound, v.Number, v.Category)
	}

	v.Apply(fields)
	s.fillAmountInWords(v)

	path, cleanup, err := s.renderToScratch(ctx, v)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if v.DocumentID != "" {
		if err := s.Documents.Delete(ctx, v.DocumentID); err != nil {
			return nil, fmt.Errorf("%w: delete previous document: %v", ErrUpstreamWriteFailure, err)
		}
	}

	doc, err := s.upload(ctx, v, path)
	if err != nil {
		return nil, err
	}
	v.DocumentID = doc.ID
	v.DocumentLink = doc.Link

	if err := s.Sheets.WriteRange(ctx, v.SpreadsheetID, RowRange(v.Category, row), [][]string{v.SheetRow()}); err != nil {
		return nil, fmt.Errorf("%w: overwrite spreadsheet row: %v", ErrUpstreamWriteFailure, err)
	}

	if err := s.Repo.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("%w: update voucher record: %v", ErrUpstreamWriteFailure, err)
	}

	s.Logger.Info("Voucher updated", "owner", owner, "voucher_id", v.ID, "number", v.Number, "row", row)

	return &SubmitResult{
		Voucher:      v,
		DocumentLink: v.DocumentLink,
		WorkspaceURL: entity.SpreadsheetURL(v.SpreadsheetID),
	}, nil
}

// Delete removes the voucher's document, clears its spreadsheet row when
// it can be found and deletes the record. A missing row is skipped.
func (s *voucherServiceImpl) Delete(ctx context.Context, owner string, number int, category string) (*DeleteResult, error) {
	if category != "" && !entity.IsValidCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	matches, err := s.Repo.FindByNumber(ctx, owner, number, category)
	if err != nil {
		return nil, fmt.Errorf("%w: look up voucher: %v", ErrUpstreamWriteFailure, err)
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: number %d", ErrVoucherNotFound, number)
	case len(matches) > 1:
		return nil, fmt.Errorf("%w: number %d exists in %d categories, category is required", ErrInvalidVoucher, number, len(matches))
	}
	v := matches[0]

	if v.DocumentID != "" {
		if err := s.Documents.Delete(ctx, v.DocumentID); err != nil {
			return nil, fmt.Errorf("%w: delete document: %v", ErrUpstreamWriteFailure, err)
		}
	}

	row, err := s.locateRow(ctx, v)
	if err != nil {
		return nil, err
	}
	if row > 0 {
		if err := s.Sheets.ClearRange(ctx, v.SpreadsheetID, RowRange(v.Category, row)); err != nil {
			return nil, fmt.Errorf("%w: clear spreadsheet row: %v", ErrUpstreamWriteFailure, err)
		}
	} else {
		s.Logger.Info("Spreadsheet row not found, skipping clear", "owner", owner, "number", v.Number, "spreadsheet_id", v.SpreadsheetID)
	}

	if err := s.Repo.Delete(ctx, v.ID, owner); err != nil {
		return nil, fmt.Errorf("%w: delete voucher record: %v", ErrUpstreamWriteFailure, err)
	}

	s.Logger.Info("Voucher deleted", "owner", owner, "category", v.Category, "number", v.Number, "row_cleared", row > 0)

	return &DeleteResult{
		Number:     v.Number,
		Category:   v.Category,
		RowCleared: row > 0,
	}, nil
}

// Export writes the filtered listing as a spreadsheet file
func (s *voucherServiceImpl) Export(ctx context.Context, owner string, filter port.ListFilter, w io.Writer) error {
	vouchers, err := s.List(ctx, owner, filter)
	if err != nil {
		return err
	}
	if err := s.Exporter.Export(vouchers, w); err != nil {
		return fmt.Errorf("export vouchers: %w", err)
	}
	return nil
}

// Preview renders the voucher again and writes its first page as PNG
func (s *voucherServiceImpl) Preview(ctx context.Context, owner, id string, w io.Writer) error {
	v, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.Renderer.Render(ctx, v, &buf); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderIOFailure, err)
	}
	if err := s.Previewer.PreviewPNG(buf.Bytes(), w); err != nil {
		return fmt.Errorf("%w: rasterize preview: %v", ErrRenderIOFailure, err)
	}
	return nil
}

// renderToScratch renders v into a scratch file. The returned cleanup
// removes the file and must always be called.
func (s *voucherServiceImpl) renderToScratch(ctx context.Context, v *entity.Voucher) (string, func(), error) {
	w, path, err := s.Files.Create(ctx, documentName(v))
	if err != nil {
		return "", nil, fmt.Errorf("%w: create scratch file: %v", ErrRenderIOFailure, err)
	}
	cleanup := func() {
		if err := s.Files.Remove(context.WithoutCancel(ctx), path); err != nil {
			s.Logger.Error("Failed to remove rendered document", "path", path, "error", err)
		}
	}

	if err := s.Renderer.Render(ctx, v, w); err != nil {
		w.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: %v", ErrRenderIOFailure, err)
	}
	// The document is complete only once the file is closed.
	if err := w.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: finalize document: %v", ErrRenderIOFailure, err)
	}

	return path, cleanup, nil
}

func (s *voucherServiceImpl) upload(ctx context.Context, v *entity.Voucher, path string) (*port.UploadedDocument, error) {
	r, err := s.Files.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: open rendered document: %v", ErrRenderIOFailure, err)
	}
	defer r.Close()

	doc, err := s.Documents.Upload(ctx, documentName(v), v.FolderID, r)
	if err != nil {
		s.Logger.Error("Failed to upload document", "owner", v.Owner, "number", v.Number, "folder_id", v.FolderID, "error", err)
		return nil, fmt.Errorf("%w: upload document: %v", ErrUpstreamWriteFailure, err)
	}
	return doc, nil
}

// locateRow scans the number column of the voucher's sheet and returns the
// 1-based row holding v.Number, or 0 when absent.
func (s *voucherServiceImpl) locateRow(ctx context.Context, v *entity.Voucher) (int, error) {
	if v.SpreadsheetID == "" {
		return 0, nil
	}

	rows, err := s.Sheets.ReadRange(ctx, v.SpreadsheetID, NumberColumnRange(v.Category))
	if err != nil {
		return 0, fmt.Errorf("%w: read spreadsheet: %v", ErrUpstreamWriteFailure, err)
	}
	return FindRow(rows, v.Number), nil
}

// FindRow returns the 1-based index of the first data row whose first cell
// equals number. The header row is never matched.
func FindRow(rows [][]string, number int) int {
	want := strconv.Itoa(number)
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(row[0]) == want {
			return i + 1
		}
	}
	return 0
}

func (s *voucherServiceImpl) fillAmountInWords(v *entity.Voucher) {
	if v.AmountInWords != "" || s.SpellAmount == nil {
		return
	}
	v.AmountInWords = s.SpellAmount(v.Amount)
}

func validateFields(fields entity.VoucherFields) error {
	if !entity.IsValidCategory(fields.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, fields.Category)
	}
	if err := fields.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVoucher, err)
	}
	return nil
}

func documentName(v *entity.Voucher) string {
	return utils.SanitizeFileName(fmt.Sprintf("%s Voucher %d.pdf", v.Category, v.Number))
}
