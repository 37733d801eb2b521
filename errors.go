package relaypay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of protocol failure
type ErrorCode string

// Error codes
const (
	ErrCodeInvalidInput        ErrorCode = "invalid_input"
	ErrCodeInvalidAddress      ErrorCode = "invalid_address"
	ErrCodeInsufficientBalance ErrorCode = "insufficient_balance"
	ErrCodeMissingInput        ErrorCode = "missing_input"
	ErrCodeNotReady            ErrorCode = "not_ready"
	ErrCodeNotApproved         ErrorCode = "not_approved"
	ErrCodeAmountMismatch      ErrorCode = "amount_mismatch"
	ErrCodeUserRejected        ErrorCode = "user_rejected"
	ErrCodeSigningFailed       ErrorCode = "signing_failed"
	ErrCodeTransientNetwork    ErrorCode = "transient_network"
	ErrCodeBusinessRejected    ErrorCode = "business_rejected"
	ErrCodeTransactionFailed   ErrorCode = "transaction_failed"
	ErrCodeAllowanceRace       ErrorCode = "allowance_race"
)

// Sentinels for errors.Is matching by code
var (
	ErrInvalidInput        = &ProtocolError{Code: ErrCodeInvalidInput}
	ErrInvalidAddress      = &ProtocolError{Code: ErrCodeInvalidAddress}
	ErrInsufficientBalance = &ProtocolError{Code: ErrCodeInsufficientBalance}
	ErrMissingInput        = &ProtocolError{Code: ErrCodeMissingInput}
	ErrNotReady            = &ProtocolError{Code: ErrCodeNotReady}
	ErrNotApproved         = &ProtocolError{Code: ErrCodeNotApproved}
	ErrAmountMismatch      = &ProtocolError{Code: ErrCodeAmountMismatch}
	ErrUserRejected        = &ProtocolError{Code: ErrCodeUserRejected}
	ErrSigningFailed       = &ProtocolError{Code: ErrCodeSigningFailed}
	ErrTransientNetwork    = &ProtocolError{Code: ErrCodeTransientNetwork}
	ErrBusinessRejected    = &ProtocolError{Code: ErrCodeBusinessRejected}
	ErrTransactionFailed   = &ProtocolError{Code: ErrCodeTransactionFailed}
	ErrAllowanceRace       = &ProtocolError{Code: ErrCodeAllowanceRace}
)

// ProtocolError is the single error type surfaced by the engines.
// Message is stable and user-readable; Err keeps the raw cause for logs.
type ProtocolError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is matches any *ProtocolError with the same code
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewProtocolError creates a new protocol error
func NewProtocolError(code ErrorCode, message string, cause error) *ProtocolError {
	return &ProtocolError{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the code of the first ProtocolError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// MessageOf returns the user-readable message for err
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// declinePatterns are wallet phrases meaning the user refused to sign
var declinePatterns = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"user cancelled",
	"user canceled",
}

// IsUserDecline reports whether a raw signer error message is a user decline
func IsUserDecline(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range declinePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// WrapSignerError maps a raw signer failure onto the taxonomy. Errors that
// are already classified pass through unchanged.
func WrapSignerError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	if IsUserDecline(err) {
		return NewProtocolError(ErrCodeUserRejected, "signature request was rejected", err)
	}
	return NewProtocolError(ErrCodeSigningFailed, err.Error(), err)
}
