package entity

// Company categories. The registry is closed: vouchers for any other
// category are rejected.
const (
	CategoryContentstack   = "Contentstack"
	CategorySurfboard      = "Surfboard"
	CategoryRawEngineering = "Raw Engineering"
)

// Categories lists the registry in display order.
var Categories = []string{
	CategoryContentstack,
	CategorySurfboard,
	CategoryRawEngineering,
}

// Transaction type constants
const (
	TransactionUPI     = "UPI"
	TransactionCash    = "Cash"
	TransactionAccount = "Account"
)

// TransactionTypes lists the accepted transaction types.
var TransactionTypes = []string{
	TransactionUPI,
	TransactionCash,
	TransactionAccount,
}

// Sort orders for voucher listings
const (
	SortByNumber     = "number"      // voucher number ascending (default)
	SortByAmountAsc  = "amount_asc"  // numeric amount ascending
	SortByAmountDesc = "amount_desc" // numeric amount descending
)

// SheetSchemaVersion identifies the spreadsheet column layout written by
// this service. Version 1 had no transaction type column.
const SheetSchemaVersion = 2

// SheetHeader is the fixed header row of every voucher spreadsheet.
var SheetHeader = []string{
	"Voucher No.",
	"Date",
	"Category",
	"Payee",
	"Account Head",
	"Towards",
	"Transaction Type",
	"Amount",
	"Amount In Words",
	"Checked By",
	"Approved By",
	"Receiver Signature",
	"Document Link",
}

// IsValidCategory reports whether category belongs to the registry.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// IsValidSort reports whether sort is a known listing order. Empty means default.
func IsValidSort(sort string) bool {
	switch sort {
	case "", SortByNumber, SortByAmountAsc, SortByAmountDesc:
		return true
	}
	return false
}
