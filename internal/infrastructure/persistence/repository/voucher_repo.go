package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
	"github.com/garyjia/voucher-sync/pkg/database"
)

const voucherColumns = `id, owner, category, number, date, payee, account_head, towards,
	transaction_type, amount, amount_in_words, checked_by, approved_by,
	receiver_signature, document_link, document_id, spreadsheet_id, folder_id,
	created_at, updated_at`

// VoucherRepository implements port.RecordStore on SQLite
type VoucherRepository struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *database.DB, logger *zap.Logger) *VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a voucher record and raises the (owner, category) counter
// to at least its number.
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	now := r.now()

	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO vouchers (
				owner, category, number, date, payee, account_head, towards,
				transaction_type, amount, amount_value, amount_in_words, checked_by,
				approved_by, receiver_signature, document_link, document_id,
				spreadsheet_id, folder_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := r.db.Executor(ctx).ExecContext(ctx, query,
			v.Owner,
			v.Category,
			v.Number,
			v.Date,
			v.Payee,
			v.AccountHead,
			v.Towards,
			v.TransactionType,
			v.Amount,
			v.AmountValue(),
			v.AmountInWords,
			v.CheckedBy,
			v.ApprovedBy,
			v.ReceiverSignature,
			v.DocumentLink,
			v.DocumentID,
			v.SpreadsheetID,
			v.FolderID,
			now,
			now,
		)
		if err != nil {
			r.logger.Error("Failed to create voucher", zap.String("owner", v.Owner), zap.Int("number", v.Number), zap.Error(err))
			return fmt.Errorf("failed to create voucher: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		_, err = r.db.Executor(ctx).ExecContext(ctx, `
			INSERT INTO voucher_counters (owner, category, last_number) VALUES (?, ?, ?)
			ON CONFLICT (owner, category) DO UPDATE SET last_number = MAX(last_number, excluded.last_number)
		`, v.Owner, v.Category, v.Number)
		if err != nil {
			return fmt.Errorf("failed to raise voucher counter: %w", err)
		}

		v.ID = strconv.FormatInt(id, 10)
		v.CreatedAt = now
		v.UpdatedAt = now
		return nil
	})
}

// GetByID retrieves a voucher by ID within the owner's scope
func (r *VoucherRepository) GetByID(ctx context.Context, id, owner string) (*entity.Voucher, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil
	}

	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = ? AND owner = ?`

	v, err := scanVoucher(r.db.Executor(ctx).QueryRowContext(ctx, query, rowID, owner))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

// FindByNumber returns the owner's vouchers with number, in any category
// when category is empty
func (r *VoucherRepository) FindByNumber(ctx context.Context, owner string, number int, category string) ([]*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE owner = ? AND number = ?`
	args := []interface{}{owner, number}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category`

	return r.query(ctx, query, args...)
}

// Update replaces the mutable fields of a voucher
func (r *VoucherRepository) Update(ctx context.Context, v *entity.Voucher) error {
	rowID, err := strconv.ParseInt(v.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id %q", port.ErrRecordNotFound, v.ID)
	}

	now := r.now()
	query := `
		UPDATE vouchers
		SET date = ?, payee = ?, account_head = ?, towards = ?, transaction_type = ?,
			amount = ?, amount_value = ?, amount_in_words = ?, checked_by = ?,
			approved_by = ?, receiver_signature = ?, document_link = ?,
			document_id = ?, updated_at = ?
		WHERE id = ? AND owner = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		v.Date,
		v.Payee,
		v.AccountHead,
		v.Towards,
		v.TransactionType,
		v.Amount,
		v.AmountValue(),
		v.AmountInWords,
		v.CheckedBy,
		v.ApprovedBy,
		v.ReceiverSignature,
		v.DocumentLink,
		v.DocumentID,
		now,
		rowID,
		v.Owner,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher", zap.String("id", v.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	if err := expectOneRow(result, v.ID); err != nil {
		return err
	}

	v.UpdatedAt = now
	return nil
}

// Delete removes a voucher. The counter is left alone so numbers are never reused.
func (r *VoucherRepository) Delete(ctx context.Context, id, owner string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id %q", port.ErrRecordNotFound, id)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM vouchers WHERE id = ? AND owner = ?`, rowID, owner)
	if err != nil {
		r.logger.Error("Failed to delete voucher", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete voucher: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves the owner's vouchers
func (r *VoucherRepository) List(ctx context.Context, owner string, filter port.ListFilter) ([]*entity.Voucher, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + voucherColumns + ` FROM vouchers WHERE owner = ?`)
	args := []interface{}{owner}

	if filter.Category != "" {
		b.WriteString(` AND category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Date != "" {
		b.WriteString(` AND date = ?`)
		args = append(args, filter.Date)
	}

	switch filter.Sort {
	case entity.SortByAmountAsc:
		b.WriteString(` ORDER BY amount_value ASC, number ASC, category ASC`)
	case entity.SortByAmountDesc:
		b.WriteString(` ORDER BY amount_value DESC, number ASC, category ASC`)
	default:
		b.WriteString(` ORDER BY number ASC, category ASC`)
	}

	return r.query(ctx, b.String(), args...)
}

// FindWorkspace returns the resource ids recorded on the owner's latest
// voucher in category
func (r *VoucherRepository) FindWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, error) {
	query := `
		SELECT spreadsheet_id, folder_id FROM vouchers
		WHERE owner = ? AND category = ? AND spreadsheet_id != ''
		ORDER BY number DESC
		LIMIT 1
	`

	ws := entity.Workspace{Owner: owner, Category: category}
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, owner, category).Scan(&ws.SpreadsheetID, &ws.FolderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find workspace", zap.String("owner", owner), zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return &ws, nil
}

// PeekNumber returns one past the larger of the counter and the highest
// stored number
func (r *VoucherRepository) PeekNumber(ctx context.Context, owner, category string) (int, error) {
	query := `
		SELECT MAX(
			COALESCE((SELECT last_number FROM voucher_counters WHERE owner = ? AND category = ?), 0),
			COALESCE((SELECT MAX(number) FROM vouchers WHERE owner = ? AND category = ?), 0)
		) + 1
	`

	var next int
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, owner, category, owner, category).Scan(&next); err != nil {
		r.logger.Error("Failed to peek voucher number", zap.String("owner", owner), zap.Error(err))
		return 0, fmt.Errorf("failed to peek voucher number: %w", err)
	}
	return next, nil
}

// AllocateNumber bumps the (owner, category) counter in a single upsert.
// A missing counter is seeded from the highest stored number.
func (r *VoucherRepository) AllocateNumber(ctx context.Context, owner, category string) (int, error) {
	query := `
		INSERT INTO voucher_counters (owner, category, last_number)
		VALUES (?, ?, (SELECT COALESCE(MAX(number), 0) + 1 FROM vouchers WHERE owner = ? AND category = ?))
		ON CONFLICT (owner, category) DO UPDATE SET last_number = last_number + 1
		RETURNING last_number
	`

	var n int
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, owner, category, owner, category).Scan(&n); err != nil {
		r.logger.Error("Failed to allocate voucher number", zap.String("owner", owner), zap.String("category", category), zap.Error(err))
		return 0, fmt.Errorf("failed to allocate voucher number: %w", err)
	}
	return n, nil
}

func (r *VoucherRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Voucher, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer rows.Close()

	vouchers := []*entity.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}

	return vouchers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVoucher(row rowScanner) (*entity.Voucher, error) {
	var v entity.Voucher
	var id int64

	err := row.Scan(
		&id,
		&v.Owner,
		&v.Category,
		&v.Number,
		&v.Date,
		&v.Payee,
		&v.AccountHead,
		&v.Towards,
		&v.TransactionType,
		&v.Amount,
		&v.AmountInWords,
		&v.CheckedBy,
		&v.ApprovedBy,
		&v.ReceiverSignature,
		&v.DocumentLink,
		&v.DocumentID,
		&v.SpreadsheetID,
		&v.FolderID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.ID = strconv.FormatInt(id, 10)
	return &v, nil
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %s", port.ErrRecordNotFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.RecordStore = (*VoucherRepository)(nil)
