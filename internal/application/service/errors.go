package service

import "errors"

// Domain errors for the voucher lifecycle. Callers classify failures with
// errors.Is; the wrapped message carries the upstream detail.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidVoucher       = errors.New("invalid voucher")
	ErrVoucherNotFound      = errors.New("voucher not found")
	ErrRowNotFound          = errors.New("spreadsheet row not found")
	ErrProvisioningFailed   = errors.New("workspace provisioning failed")
	ErrRenderIOFailure      = errors.New("document render failed")
	ErrUpstreamWriteFailure = errors.New("upstream write failed")
)

// Error codes returned to API clients
const (
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeInvalidCategory      = "INVALID_CATEGORY"
	CodeInvalidVoucher       = "INVALID_VOUCHER"
	CodeVoucherNotFound      = "VOUCHER_NOT_FOUND"
	CodeRowNotFound          = "ROW_NOT_FOUND"
	CodeProvisioningFailed   = "PROVISIONING_FAILED"
	CodeRenderIOFailure      = "RENDER_IO_FAILURE"
	CodeUpstreamWriteFailure = "UPSTREAM_WRITE_FAILURE"
	CodeInternal             = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrInvalidCategory, CodeInvalidCategory},
	{ErrInvalidVoucher, CodeInvalidVoucher},
	{ErrVoucherNotFound, CodeVoucherNotFound},
	{ErrRowNotFound, CodeRowNotFound},
	{ErrProvisioningFailed, CodeProvisioningFailed},
	{ErrRenderIOFailure, CodeRenderIOFailure},
	{ErrUpstreamWriteFailure, CodeUpstreamWriteFailure},
}

// ErrorCode classifies err into one of the Code constants
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
