package ledger

import (
	"errors"
	"fmt"
)

// Error codes recorded in receipts.
const (
	CodeValidation          = "VALIDATION"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
)

// CodedError is implemented by every ledger error.
type CodedError interface {
	error
	Code() string
}

// ValidationError reports a malformed input field.
// Index is the failing entry of a batch, or -1 outside batches.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid entry %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code implements CodedError.
func (e *ValidationError) Code() string { return CodeValidation }

// NotFoundError reports a reference to an unallocated id or an unpriced
// service. Kind is "name", "certificate" or "service".
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Kind, e.Key)
}

// Code implements CodedError.
func (e *NotFoundError) Code() string { return CodeNotFound }

// AuthorizationError reports a caller lacking the role or ownership an
// operation requires.
type AuthorizationError struct {
	Caller Address
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s not permitted to %s: %s", e.Caller, e.Action, e.Reason)
}

// Code implements CodedError.
func (e *AuthorizationError) Code() string { return CodeUnauthorized }

// InsufficientBalanceError reports a debit exceeding the available balance
// (or the delegate's allowance).
type InsufficientBalanceError struct {
	Account   Address
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: required %d, available %d",
		e.Account, e.Required, e.Available)
}

// Code implements CodedError.
func (e *InsufficientBalanceError) Code() string { return CodeInsufficientBalance }

// CodeOf returns the ledger error code carried by err, or "" if err is not
// a ledger error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) string {
	var ce CodedError
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsUnauthorized reports whether err is an AuthorizationError.
func IsUnauthorized(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

// IsInsufficientBalance reports whether err is an InsufficientBalanceError.
func IsInsufficientBalance(err error) bool {
	var e *InsufficientBalanceError
	return errors.As(err, &e)
}
