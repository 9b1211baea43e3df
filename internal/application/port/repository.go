package port

import (
	"context"
	"errors"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// ErrRecordNotFound is returned when an update or delete matches no record
var ErrRecordNotFound = errors.New("voucher record not found")

// ListFilter narrows a voucher listing. Owner scoping is mandatory and
// passed separately.
type ListFilter struct {
	Category string
	Date     string
	Sort     string
}

// VoucherRepository defines persistence operations for Voucher. It is the
// only queryable source of truth; spreadsheets are projections of it.
type VoucherRepository interface {
	// Create inserts v and assigns v.ID
	Create(ctx context.Context, v *entity.Voucher) error

	// GetByID returns the voucher with id owned by owner, or nil when none matches
	GetByID(ctx context.Context, id, owner string) (*entity.Voucher, error)

	// FindByNumber returns vouchers of owner with the given number. An empty
	// category matches every category.
	FindByNumber(ctx context.Context, owner string, number int, category string) ([]*entity.Voucher, error)

	// Update replaces the mutable fields of an existing voucher
	Update(ctx context.Context, v *entity.Voucher) error

	// Delete removes the voucher with id owned by owner
	Delete(ctx context.Context, id, owner string) error

	// List returns the owner's vouchers filtered and sorted by filter
	List(ctx context.Context, owner string, filter ListFilter) ([]*entity.Voucher, error)

	// FindWorkspace returns the spreadsheet/folder ids recorded on any voucher
	// of (owner, category), or nil when the pair has no vouchers yet
	FindWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, error)
}

// NumberAllocator hands out voucher numbers per (owner, category).
type NumberAllocator interface {
	// PeekNumber returns the number the next allocation would yield without reserving it
	PeekNumber(ctx context.Context, owner, category string) (int, error)

	// AllocateNumber atomically reserves and returns the next number
	AllocateNumber(ctx context.Context, owner, category string) (int, error)
}

// RecordStore is the full record-store contract implemented by each backend.
type RecordStore interface {
	VoucherRepository
	NumberAllocator
}

// SessionStore caches verified identities under opaque tokens
type SessionStore interface {
	Get(token string) (*entity.Session, bool)
	Put(session *entity.Session)
	Delete(token string)
}
