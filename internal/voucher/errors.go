package voucher

import "errors"

var (
	// ErrEmptyDocument is returned when a PDF has no pages to preview
	ErrEmptyDocument = errors.New("document has no pages")
)
