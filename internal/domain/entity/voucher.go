package entity

import (
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/garyjia/voucher-sync/pkg/utils"
)

// Voucher is a single payment authorization record
type Voucher struct {
	ID                string    `json:"id"`
	Owner             string    `json:"owner"`
	Category          string    `json:"category"`
	Number            int       `json:"number"`
	Date              string    `json:"date"`
	Payee             string    `json:"payee"`
	AccountHead       string    `json:"account_head"`
	Towards           string    `json:"towards"`
	TransactionType   string    `json:"transaction_type"`
	Amount            string    `json:"amount"`
	AmountInWords     string    `json:"amount_in_words"`
	CheckedBy         string    `json:"checked_by"`
	ApprovedBy        string    `json:"approved_by"`
	ReceiverSignature string    `json:"receiver_signature"`
	DocumentLink      string    `json:"document_link"`
	DocumentID        string    `json:"document_id"`
	SpreadsheetID     string    `json:"spreadsheet_id"`
	FolderID          string    `json:"folder_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VoucherFields holds the user-editable part of a voucher
type VoucherFields struct {
	Category          string `json:"category"`
	Date              string `json:"date"`
	Payee             string `json:"payee"`
	AccountHead       string `json:"account_head"`
	Towards           string `json:"towards"`
	TransactionType   string `json:"transaction_type"`
	Amount            string `json:"amount"`
	AmountInWords     string `json:"amount_in_words"`
	CheckedBy         string `json:"checked_by"`
	ApprovedBy        string `json:"approved_by"`
	ReceiverSignature string `json:"receiver_signature"`
}

// Validate checks the free-text fields. Category membership is checked
// separately so it can be rejected first.
func (f VoucherFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Category, validation.Required),
		validation.Field(&f.TransactionType, validation.In(toAny(TransactionTypes)...)),
		validation.Field(&f.Amount, validation.Length(0, 64)),
		validation.Field(&f.Date, validation.Length(0, 32)),
		validation.Field(&f.Payee, validation.Length(0, 256)),
		validation.Field(&f.AccountHead, validation.Length(0, 256)),
		validation.Field(&f.Towards, validation.Length(0, 512)),
		validation.Field(&f.AmountInWords, validation.Length(0, 512)),
	)
}

// Apply copies the editable fields onto v. Category is left untouched.
func (v *Voucher) Apply(f VoucherFields) {
	v.Date = f.Date
	v.Payee = f.Payee
	v.AccountHead = f.AccountHead
	v.Towards = f.Towards
	v.TransactionType = f.TransactionType
	v.Amount = f.Amount
	v.AmountInWords = f.AmountInWords
	v.CheckedBy = f.CheckedBy
	v.ApprovedBy = f.ApprovedBy
	v.ReceiverSignature = f.ReceiverSignature
}

// AmountValue returns the numeric value of Amount for sorting and totals.
// Amount is free text; anything that is not a finite number counts as 0.
func (v *Voucher) AmountValue() float64 {
	n, _ := utils.ParseAmount(v.Amount)
	return n
}

// SheetRow returns the voucher as a spreadsheet row in SheetHeader order.
func (v *Voucher) SheetRow() []string {
	return []string{
		strconv.Itoa(v.Number),
		v.Date,
		v.Category,
		v.Payee,
		v.AccountHead,
		v.Towards,
		v.TransactionType,
		v.Amount,
		v.AmountInWords,
		v.CheckedBy,
		v.ApprovedBy,
		v.ReceiverSignature,
		v.DocumentLink,
	}
}

// ValidateOwner checks the owner identity used to scope records.
func ValidateOwner(owner string) error {
	return validation.Validate(owner, validation.Required, is.EmailFormat)
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
