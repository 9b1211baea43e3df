package port

import (
	"context"
	"io"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// IdentityProvider exchanges a bearer credential for a verified identity
type IdentityProvider interface {
	UserInfo(ctx context.Context, bearer string) (*entity.Identity, error)
}

// SpreadsheetStore defines spreadsheet operations. Ranges use A1 notation.
type SpreadsheetStore interface {
	// Create makes a spreadsheet with a single sheet and returns its id
	Create(ctx context.Context, title, sheet string, columns int) (string, error)
	ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	WriteRange(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
	ClearRange(ctx context.Context, spreadsheetID, rng string) error
}

// UploadedDocument identifies a file stored in the document store
type UploadedDocument struct {
	ID   string
	Link string
}

// DocumentStore defines folder and document operations
type DocumentStore interface {
	CreateFolder(ctx context.Context, name string) (string, error)
	Upload(ctx context.Context, name, parentID string, content io.Reader) (*UploadedDocument, error)
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
}

// ResourceSharer grants a user access to a provisioned resource
type ResourceSharer interface {
	Share(ctx context.Context, resourceID, email string) error
}

// Renderer lays out a voucher document
type Renderer interface {
	Render(ctx context.Context, v *entity.Voucher, w io.Writer) error
}

// Previewer rasterizes the first page of a rendered document as PNG
type Previewer interface {
	PreviewPNG(pdf []byte, w io.Writer) error
}

// Exporter writes a voucher listing as a spreadsheet file
type Exporter interface {
	Export(vouchers []*entity.Voucher, w io.Writer) error
}
