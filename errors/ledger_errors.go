package errors

import (
	"errors"

	"ppn/jsonx"
)

// LedgerErrorCode represents standardized error codes for ledger operations
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"

	// Validation errors - the caller must correct the input
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidAddress   = "invalid_address"
	ErrCodeInvalidAmount    = "invalid_amount"
	ErrCodeMemoTooLong      = "memo_too_long"
	ErrCodeSelfPayment      = "self_payment"
	ErrCodeInvalidReceiver  = "invalid_receiver"
	ErrCodeAmountOverflow   = "amount_overflow"
	ErrCodeInvalidSignature = "invalid_signature"

	// Authorization
	ErrCodeUnauthorized = "unauthorized"

	// Business logic errors
	ErrCodeInsufficientFunds   = "insufficient_funds"
	ErrCodeAccountNotFound     = "account_not_found"
	ErrCodePaymentNotFound     = "payment_not_found"
	ErrCodeStateNotInitialized = "state_not_initialized"

	// Concurrency errors - safe to retry with fresh state
	ErrCodeSequenceConflict = "sequence_conflict"
	ErrCodeAddressCollision = "address_collision"
)

// LedgerError represents a standardized ledger error
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	err, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest      = "Request format is invalid"
	ErrMsgInvalidAddress      = "Address is invalid"
	ErrMsgInvalidAmount       = "Amount must be greater than zero"
	ErrMsgMemoTooLong         = "Memo exceeds the maximum byte length"
	ErrMsgSelfPayment         = "Sender and receiver must differ"
	ErrMsgInvalidReceiver     = "Receiver account cannot accept payments"
	ErrMsgAmountOverflow      = "Amount arithmetic overflowed"
	ErrMsgInvalidSignature    = "Payment signature is invalid"
	ErrMsgUnauthorized        = "Unauthorized"
	ErrMsgInsufficientFunds   = "Not enough balance in the sender account"
	ErrMsgAccountNotFound     = "Account does not exist"
	ErrMsgPaymentNotFound     = "Payment could not be found"
	ErrMsgStateNotInitialized = "Ledger state has not been initialized"
	ErrMsgSequenceConflict    = "Sequence number is stale, re-read state and resubmit"
	ErrMsgAddressCollision    = "Derived record address is already occupied"
	ErrMsgInternal            = "Server error, please try again"
)

// NewError creates a new LedgerError and returns it as error interface
func NewError(code LedgerErrorCode, message string) error {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// CodeOf extracts the LedgerErrorCode from err, unwrapping as needed.
// Returns ErrCodeInternal for errors that are not LedgerErrors.
func CodeOf(err error) LedgerErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the caller should re-read ledger state and
// resubmit. Everything else is permanent for the submitted request: either
// the input is wrong or the balance snapshot cannot cover it.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeSequenceConflict, ErrCodeAddressCollision:
		return true
	}
	return false
}
