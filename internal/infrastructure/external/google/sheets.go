package google

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"

	"github.com/garyjia/voucher-sync/internal/application/port"
)

// rawInput stores cell values exactly as given so numbers read back unchanged
const rawInput = "RAW"

// SheetsStore implements port.SpreadsheetStore on the Sheets API
type SheetsStore struct {
	svc     *sheets.Service
	timeout time.Duration
	logger  *zap.Logger
}

// NewSheetsStore creates a new SheetsStore
func NewSheetsStore(svc *sheets.Service, timeout time.Duration, logger *zap.Logger) *SheetsStore {
	return &SheetsStore{
		svc:     svc,
		timeout: timeout,
		logger:  logger,
	}
}

// Create makes a spreadsheet titled title with one sheet and a frozen header row
func (s *SheetsStore) Create(ctx context.Context, title, sheet string, columns int) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
		Sheets: []*sheets.Sheet{{
			Properties: &sheets.SheetProperties{
				Title: sheet,
				GridProperties: &sheets.GridProperties{
					ColumnCount:    int64(columns),
					RowCount:       1000,
					FrozenRowCount: 1,
				},
			},
		}},
	}

	created, err := s.svc.Spreadsheets.Create(spreadsheet).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("Failed to create spreadsheet", zap.String("title", title), zap.Error(err))
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	s.logger.Info("Spreadsheet created", zap.String("title", title), zap.String("spreadsheet_id", created.SpreadsheetId))
	return created.SpreadsheetId, nil
}

// ReadRange returns the formatted values in rng. Interior empty rows come
// back as empty slices so row indexes stay aligned.
func (s *SheetsStore) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}

	return fromValues(resp.Values), nil
}

// WriteRange overwrites rng with rows
func (s *SheetsStore) WriteRange(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: toValues(rows)}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write range %s: %w", rng, err)
	}
	return nil
}

// Append adds rows after the table anchored at rng
func (s *SheetsStore) Append(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: toValues(rows)}).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", rng, err)
	}
	return nil
}

// ClearRange blanks the values in rng, leaving the row in place
func (s *SheetsStore) ClearRange(ctx context.Context, spreadsheetID, rng string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear range %s: %w", rng, err)
	}
	return nil
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return values
}

func fromValues(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows
}

// Verify interface compliance
var _ port.SpreadsheetStore = (*SheetsStore)(nil)
