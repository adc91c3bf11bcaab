package domain

import dErrors "givepool/pkg/domain-errors"

// PrincipalID identifies an external party (administrator, donor, or
// beneficiary). The pool never owns principals; it only references them.
//
// Usage: construct via ParsePrincipalID at trust boundaries so the empty
// identity is rejected; direct casting bypasses validation.
type PrincipalID string

// ParsePrincipalID constructs a PrincipalID from external input.
//
// Errors: returns CodeValidation when the value is empty; no other errors are
// expected.
func ParsePrincipalID(s string) (PrincipalID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "principal id cannot be empty")
	}
	return PrincipalID(s), nil
}

// IsNil reports whether the id is the empty identity.
func (p PrincipalID) IsNil() bool {
	return p == ""
}

// String returns the string representation of the id.
func (p PrincipalID) String() string {
	return string(p)
}
