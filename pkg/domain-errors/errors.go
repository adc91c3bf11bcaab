// Package domainerrors provides coded errors shared by services and handlers.
//
// Services attach a Code to every error they surface so transports can map
// failures to stable wire representations without string matching. Stores
// return pkg/platform/sentinel errors instead; services translate those into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeUnauthorized covers wrong-caller failures: a non-admin invoking a
	// registry mutation, or a non-beneficiary attempting a withdrawal.
	CodeUnauthorized Code = "unauthorized"
	// CodeValidation covers malformed or out-of-range input, duplicate
	// registration, unknown ids, and out-of-range history indexes.
	CodeValidation Code = "validation"
	// CodeAllocationExceeded is returned when a registry mutation would push
	// the total allocation over 100 percent.
	CodeAllocationExceeded Code = "allocation_exceeded"
	// CodeInvalidState covers invalid transitions: already active/inactive,
	// no beneficiaries, no active beneficiaries, zero withdrawable balance.
	CodeInvalidState Code = "invalid_state"
	// CodeTransferFailed is returned when the external value transfer during
	// a withdrawal fails. The ledger debit is rolled back before surfacing it.
	CodeTransferFailed Code = "transfer_failed"

	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error carries a code, a stable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is treat two coded errors with the same code and message as
// equal, so tests can assert against dErrors.New(...) values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// GetCode extracts the code from err, walking the wrap chain. Uncoded errors
// report CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on a
// single code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf returns the stable message of a coded error, or err.Error() for
// uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
