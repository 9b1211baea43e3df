package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// WorkspaceService provisions the spreadsheet and folder of an (owner, category)
type WorkspaceService interface {
	EnsureWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, bool, error)
}

// WorkspaceOption configures the workspace service
type WorkspaceOption func(*workspaceServiceImpl)

// WithOwnerSharing grants the owner access to newly provisioned resources
func WithOwnerSharing(sheets, folders port.ResourceSharer) WorkspaceOption {
	return func(s *workspaceServiceImpl) {
		s.sheetSharer = sheets
		s.folderSharer = folders
	}
}

type workspaceServiceImpl struct {
	repo         port.VoucherRepository
	sheets       port.SpreadsheetStore
	docs         port.DocumentStore
	sheetSharer  port.ResourceSharer
	folderSharer port.ResourceSharer
	logger       Logger

	group singleflight.Group

	// provisioned remembers workspaces created by this process until a
	// voucher referencing them is persisted.
	mu          sync.Mutex
	provisioned map[string]*entity.Workspace
}

// NewWorkspaceService creates a new WorkspaceService
func NewWorkspaceService(
	repo port.VoucherRepository,
	sheets port.SpreadsheetStore,
	docs port.DocumentStore,
	logger Logger,
	opts ...WorkspaceOption,
) WorkspaceService {
	s := &workspaceServiceImpl{
		repo:        repo,
		sheets:      sheets,
		docs:        docs,
		logger:      logger,
		provisioned: make(map[string]*entity.Workspace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureWorkspace returns the workspace of (owner, category), creating the
// spreadsheet and folder on first use. The bool reports whether resources
// were created by this call.
func (s *workspaceServiceImpl) EnsureWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, bool, error) {
	key := workspaceKey(owner, category)

	type result struct {
		ws      *entity.Workspace
		created bool
	}

	// Callers joining the flight share its outcome, so it must not end
	// when the first caller goes away. Each Google call carries its own
	// timeout.
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ws, err := s.existing(flightCtx, owner, category)
		if err != nil {
			return nil, err
		}
		if ws != nil {
			return result{ws: ws}, nil
		}

		ws, err = s.provision(flightCtx, owner, category)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.provisioned[key] = ws
		s.mu.Unlock()

		return result{ws: ws, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(result)
	ws := *res.ws
	return &ws, res.created, nil
}

func (s *workspaceServiceImpl) existing(ctx context.Context, owner, category string) (*entity.Workspace, error) {
	ws, err := s.repo.FindWorkspace(ctx, owner, category)
	if err != nil {
		return nil, fmt.Errorf("%w: look up workspace: %v", ErrProvisioningFailed, err)
	}

	key := workspaceKey(owner, category)
	s.mu.Lock()
	defer s.mu.Unlock()

	if ws != nil {
		delete(s.provisioned, key)
		return ws, nil
	}
	if memo, ok := s.provisioned[key]; ok {
		return memo, nil
	}
	return nil, nil
}

func (s *workspaceServiceImpl) provision(ctx context.Context, owner, category string) (*entity.Workspace, error) {
	title := entity.WorkspaceTitle(category)

	spreadsheetID, err := s.sheets.Create(ctx, title, category, len(entity.SheetHeader))
	if err != nil {
		s.logger.Error("Failed to create spreadsheet", "owner", owner, "category", category, "error", err)
		return nil, fmt.Errorf("%w: create spreadsheet: %v", ErrProvisioningFailed, err)
	}

	header := [][]string{entity.SheetHeader}
	if err := s.sheets.WriteRange(ctx, spreadsheetID, HeaderRange(category), header); err != nil {
		s.logger.Error("Failed to write header row", "spreadsheet_id", spreadsheetID, "error", err)
		return nil, fmt.Errorf("%w: write header row: %v", ErrProvisioningFailed, err)
	}

	folderID, err := s.docs.CreateFolder(ctx, title)
	if err != nil {
		// The spreadsheet stays behind; there is no cross-store rollback.
		s.logger.Error("Failed to create folder, spreadsheet left orphaned",
			"owner", owner,
			"category", category,
			"spreadsheet_id", spreadsheetID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: create folder: %v", ErrProvisioningFailed, err)
	}

	if s.sheetSharer != nil {
		if err := s.sheetSharer.Share(ctx, spreadsheetID, owner); err != nil {
			return nil, fmt.Errorf("%w: share spreadsheet: %v", ErrProvisioningFailed, err)
		}
	}
	if s.folderSharer != nil {
		if err := s.folderSharer.Share(ctx, folderID, owner); err != nil {
			return nil, fmt.Errorf("%w: share folder: %v", ErrProvisioningFailed, err)
		}
	}

	s.logger.Info("Workspace provisioned",
		"owner", owner,
		"category", category,
		"spreadsheet_id", spreadsheetID,
		"folder_id", folderID,
		"schema_version", entity.SheetSchemaVersion,
	)

	return &entity.Workspace{
		Owner:         owner,
		Category:      category,
		SpreadsheetID: spreadsheetID,
		FolderID:      folderID,
	}, nil
}

func workspaceKey(owner, category string) string {
	return owner + "\x00" + category
}

// SheetRange qualifies an A1 range with a sheet name, quoting the name.
func SheetRange(sheet, a1 string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), a1)
}

// HeaderRange is the header row of a category sheet
func HeaderRange(sheet string) string {
	return SheetRange(sheet, fmt.Sprintf("A1:%s1", lastColumn()))
}

// RowRange is the full data range of row r (1-based)
func RowRange(sheet string, r int) string {
	return SheetRange(sheet, fmt.Sprintf("A%d:%s%d", r, lastColumn(), r))
}

// NumberColumnRange is column A, where voucher numbers live
func NumberColumnRange(sheet string) string {
	return SheetRange(sheet, "A:A")
}

// AppendRange is the table anchor used when appending rows
func AppendRange(sheet string) string {
	return SheetRange(sheet, "A1")
}

func lastColumn() string {
	return string(rune('A' + len(entity.SheetHeader) - 1))
}
